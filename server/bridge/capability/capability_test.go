package capability_test

import (
	"errors"
	"testing"

	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/bridge/capability"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/server/host/hosttest"
	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newBridge(t *testing.T, p *hosttest.Platform) *bridge.Bridge {
	t.Helper()
	b := bridge.New(zaptest.NewLogger(t), p)
	b.AddCapability(capability.All(b)...)
	t.Cleanup(b.Close)
	return b
}

func dispatch(b *bridge.Bridge, name string, a schema.ArgumentSet) schema.Result {
	return b.Dispatch(schema.NewCommand(name, a))
}

func TestPing(t *testing.T) {
	b := newBridge(t, hosttest.New(34))
	assert.Equal(t, schema.Success("pong"), dispatch(b, schema.CommandPing, nil))
}

func TestUnknownCommand(t *testing.T) {
	p := hosttest.New(34).ResolveNames(host.ActionView)
	b := newBridge(t, p)

	for _, name := range []string{"", "nope", "INSTALLAPK", "onUserLeaveHint"} {
		r := dispatch(b, name, schema.ArgumentSet{"apkPath": "/x.apk"})
		assert.Equal(t, schema.ResultUnimplemented, r.Kind, "command %q", name)
	}
	assert.Empty(t, p.Launched)
}

func TestBack(t *testing.T) {
	p := hosttest.New(34)
	b := newBridge(t, p)

	r := dispatch(b, schema.CommandBack, nil)
	assert.Equal(t, schema.Success(nil), r)

	a := p.LastLaunched()
	require.NotNil(t, a)
	assert.Equal(t, host.ActionMain, a.Name)
	assert.Equal(t, []string{host.CategoryHome}, a.Categories)
	assert.True(t, a.Flags.Has(host.FlagNewTask))
	assert.Empty(t, p.Resolved, "back is fire-and-forget")
}

func TestBack_FailureIsSwallowed(t *testing.T) {
	p := hosttest.New(34)
	p.LaunchErr = func(*host.Action) error { return errors.New("activity not found") }
	b := newBridge(t, p)

	assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandBack, nil))
}

func TestLinkVerifySettings(t *testing.T) {
	t.Run("modern host uses the deep link", func(t *testing.T) {
		p := hosttest.New(31).ResolveNames(host.ActionAppOpenByDefault)
		b := newBridge(t, p)

		assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandLinkVerifySettings, nil))
		require.Len(t, p.Launched, 1)
		assert.Equal(t, host.ActionAppOpenByDefault, p.Launched[0].Name)
		assert.Equal(t, "package:com.example.piliplus", p.Launched[0].Data)
	})

	t.Run("legacy host uses the settings activity", func(t *testing.T) {
		p := hosttest.New(28).ResolveNames(host.ActionMain, host.ActionAppOpenByDefault)
		b := newBridge(t, p)

		dispatch(b, schema.CommandLinkVerifySettings, nil)
		require.Len(t, p.Launched, 1)
		a := p.Launched[0]
		assert.Equal(t, host.ActionMain, a.Name)
		assert.Equal(t, "com.android.settings", a.Component.Package)
		assert.Equal(t, "com.android.settings.applications.InstalledAppOpenByDefaultActivity", a.Component.Class)
		assert.NotContains(t, p.ResolvedNames(), host.ActionAppOpenByDefault, "deep link is gated off")
	})

	t.Run("falls back to application details", func(t *testing.T) {
		p := hosttest.New(34)
		b := newBridge(t, p)

		assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandLinkVerifySettings, nil))
		assert.Equal(t, []string{host.ActionApplicationDetails}, p.LaunchedNames())
		assert.Equal(t, "package:com.example.piliplus", p.Launched[0].Data)
	})

	t.Run("deep link launch failure falls back", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionAppOpenByDefault)
		p.LaunchErr = func(a *host.Action) error {
			if a.Name == host.ActionAppOpenByDefault {
				return errors.New("security exception")
			}
			return nil
		}
		b := newBridge(t, p)

		dispatch(b, schema.CommandLinkVerifySettings, nil)
		assert.Equal(t, []string{host.ActionApplicationDetails}, p.LaunchedNames())
	})
}

func TestAntifraud(t *testing.T) {
	p := hosttest.New(34)
	b := newBridge(t, p)

	r := dispatch(b, schema.CommandAntifraud, schema.ArgumentSet{
		"action":       float64(1),
		"oid":          int32(42),
		"type":         int64(1),
		"rpid":         float64(9007199254740992),
		"root":         int64(3),
		"comment_text": "hi",
		"source_id":    "src",
		"uid":          uint8(7),
		"cookies":      []any{"a=1", "b=2"},
	})
	assert.Equal(t, schema.Success(nil), r)

	a := p.LastLaunched()
	require.NotNil(t, a)
	assert.Equal(t, "icu.freedomIntrovert.biliSendCommAntifraud", a.Component.Package)
	assert.Equal(t, "icu.freedomIntrovert.biliSendCommAntifraud.ByXposedLaunchedActivity", a.Component.Class)
	assert.Equal(t, int32(1), a.Extras["action"])
	assert.Equal(t, int64(42), a.Extras["oid"])
	assert.Equal(t, int32(1), a.Extras["type"])
	assert.Equal(t, int64(9007199254740992), a.Extras["rpid"])
	assert.Equal(t, int64(3), a.Extras["root"])
	assert.Equal(t, int64(0), a.Extras["parent"])
	assert.Equal(t, int64(0), a.Extras["ctime"])
	assert.Equal(t, "hi", a.Extras["comment_text"])
	assert.Equal(t, "src", a.Extras["source_id"])
	assert.Equal(t, int64(7), a.Extras["uid"])
	assert.Equal(t, []string{"a=1", "b=2"}, a.Extras["cookies"])
	assert.NotContains(t, a.Extras, "pictures")
}

func TestAntifraud_DefaultsAndPictures(t *testing.T) {
	p := hosttest.New(34)
	b := newBridge(t, p)

	dispatch(b, schema.CommandAntifraud, schema.ArgumentSet{"pictures": "[]", "oid": "not a number"})

	a := p.LastLaunched()
	require.NotNil(t, a)
	assert.Equal(t, "[]", a.Extras["pictures"])
	assert.Equal(t, int64(0), a.Extras["oid"])
	assert.Equal(t, "", a.Extras["comment_text"])
	assert.Equal(t, []string{}, a.Extras["cookies"])
}

func TestAntifraud_FailureIsSwallowed(t *testing.T) {
	p := hosttest.New(34)
	p.LaunchErr = func(*host.Action) error { return errors.New("not installed") }
	b := newBridge(t, p)

	assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandAntifraud, nil))
}

func TestMusic(t *testing.T) {
	t.Run("nothing resolves", func(t *testing.T) {
		p := hosttest.New(34)
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandMusic, schema.ArgumentSet{"title": "Song", "artist": nil, "album": nil})
		assert.Equal(t, schema.Success(false), r)
		assert.Equal(t, []string{host.ActionMediaSearch, host.ActionMediaPlayFromSearch}, p.ResolvedNames())
		assert.Empty(t, p.Launched)
	})

	t.Run("search resolves so play-from-search is never attempted", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionMediaSearch, host.ActionMediaPlayFromSearch)
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandMusic, schema.ArgumentSet{"title": "Song", "artist": "Band"})
		assert.Equal(t, schema.Success(true), r)
		assert.Equal(t, []string{host.ActionMediaSearch}, p.ResolvedNames())

		a := p.LastLaunched()
		assert.Equal(t, "Song", a.Extras[host.ExtraQuery])
		assert.Equal(t, "Song", a.Extras[host.ExtraMediaTitle])
		assert.Equal(t, "Band", a.Extras[host.ExtraMediaArtist])
		assert.NotContains(t, a.Extras, host.ExtraMediaAlbum)
		assert.Equal(t, []string{host.CategoryDefault}, a.Categories)
	})

	t.Run("falls back to play-from-search", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionMediaPlayFromSearch)
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandMusic, schema.ArgumentSet{"title": "Song", "album": "LP"})
		assert.Equal(t, schema.Success(true), r)
		assert.Equal(t, []string{host.ActionMediaPlayFromSearch}, p.LaunchedNames())
		assert.Equal(t, "LP", p.LastLaunched().Extras[host.ExtraMediaAlbum])
		assert.NotSame(t, p.Resolved[0], p.Resolved[1])
	})
}

func TestSetPipAutoEnterEnabled(t *testing.T) {
	t.Run("modern host", func(t *testing.T) {
		p := hosttest.New(31)
		b := newBridge(t, p)

		assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandSetPipAutoEnterEnabled, schema.ArgumentSet{"autoEnable": true}))
		assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandSetPipAutoEnterEnabled, nil))
		assert.Equal(t, []bool{true, false}, p.AutoPip)
	})

	t.Run("legacy host is a no-op", func(t *testing.T) {
		p := hosttest.New(30)
		b := newBridge(t, p)

		assert.Equal(t, schema.Success(nil), dispatch(b, schema.CommandSetPipAutoEnterEnabled, schema.ArgumentSet{"autoEnable": true}))
		assert.Empty(t, p.AutoPip)
	})

	t.Run("platform error", func(t *testing.T) {
		p := hosttest.New(34)
		p.PipErr = errors.New("not in foreground")
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandSetPipAutoEnterEnabled, schema.ArgumentSet{"autoEnable": true})
		assert.Equal(t, schema.ResultFailure, r.Kind)
		assert.Equal(t, schema.CodeExecutionFailure, r.Code)
	})
}

func TestInstallApk(t *testing.T) {
	const apk = "/data/downloads/update.apk"

	t.Run("missing path", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionView)
		b := newBridge(t, p)

		for _, a := range []schema.ArgumentSet{nil, {"apkPath": nil}} {
			r := dispatch(b, schema.CommandInstallApk, a)
			assert.Equal(t, schema.Failure(schema.CodeInvalidArgument, "APK path is null"), r)
		}
		assert.Empty(t, p.Resolved)
		assert.Empty(t, p.Launched)
	})

	t.Run("file not found", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionView)
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": "/tmp/missing.apk"})
		assert.Equal(t, schema.Failure(schema.CodeResourceNotFound, "APK file not found: /tmp/missing.apk"), r)
		assert.Empty(t, p.Launched)
	})

	t.Run("no handler", func(t *testing.T) {
		p := hosttest.New(34)
		p.Files[apk] = true
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": apk})
		assert.Equal(t, schema.Failure(schema.CodeNoHandlerAvailable, "No app can handle the install intent"), r)
	})

	t.Run("scoped host uses a content reference", func(t *testing.T) {
		p := hosttest.New(24).ResolveNames(host.ActionView)
		p.Files[apk] = true
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": apk})
		assert.Equal(t, schema.Success(true), r)

		a := p.LastLaunched()
		require.NotNil(t, a)
		assert.Equal(t, "content://com.example.piliplus.fileprovider/data/downloads/update.apk", a.Data)
		assert.Equal(t, host.MIMETypePackageArchive, a.MIMEType)
		assert.Equal(t, host.FlagNewTask|host.FlagGrantReadURIPermission, a.Flags)
	})

	t.Run("legacy host uses a file reference", func(t *testing.T) {
		p := hosttest.New(23).ResolveNames(host.ActionView)
		p.Files[apk] = true
		b := newBridge(t, p)

		assert.Equal(t, schema.Success(true), dispatch(b, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": apk}))
		assert.Equal(t, "file:///data/downloads/update.apk", p.LastLaunched().Data)
	})

	t.Run("launch failure", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionView)
		p.Files[apk] = true
		p.LaunchErr = func(*host.Action) error { return errors.New("permission denied") }
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": apk})
		assert.Equal(t, schema.Failure(schema.CodeExecutionFailure, "Failed to install APK: permission denied"), r)
	})

	t.Run("stat failure", func(t *testing.T) {
		p := hosttest.New(34).ResolveNames(host.ActionView)
		p.StatErr = errors.New("io error")
		b := newBridge(t, p)

		r := dispatch(b, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": apk})
		assert.Equal(t, schema.CodeExecutionFailure, r.Code)
		assert.Empty(t, p.Resolved)
	})
}

func TestAll_RegistersEveryCommand(t *testing.T) {
	b := newBridge(t, hosttest.New(34))
	assert.Equal(t, []string{
		schema.CommandBack,
		schema.CommandAntifraud,
		schema.CommandInstallApk,
		schema.CommandLinkVerifySettings,
		schema.CommandMusic,
		schema.CommandPing,
		schema.CommandSetPipAutoEnterEnabled,
	}, b.Commands())
}
