package client

import (
	"context"

	"github.com/gate4ai/hostbridge/shared/schema"
)

// Ping checks that the host answers.
func (s *Session) Ping(ctx context.Context) (schema.Result, error) {
	return s.Call(ctx, schema.CommandPing, nil)
}

// Back sends the host to the launcher.
func (s *Session) Back(ctx context.Context) (schema.Result, error) {
	return s.Call(ctx, schema.CommandBack, nil)
}

// LinkVerifySettings opens the "open by default" settings of the host app.
func (s *Session) LinkVerifySettings(ctx context.Context) (schema.Result, error) {
	return s.Call(ctx, schema.CommandLinkVerifySettings, nil)
}

// Music asks a music app to search for title. It reports whether any app
// took the request.
func (s *Session) Music(ctx context.Context, title string, artist, album *string) (bool, error) {
	a := schema.ArgumentSet{"title": title}
	if artist != nil {
		a["artist"] = *artist
	}
	if album != nil {
		a["album"] = *album
	}
	r, err := s.Call(ctx, schema.CommandMusic, a)
	if err != nil {
		return false, err
	}
	return r.Bool(), nil
}

// SetPipAutoEnterEnabled toggles automatic picture-in-picture entry.
func (s *Session) SetPipAutoEnterEnabled(ctx context.Context, enabled bool) (schema.Result, error) {
	return s.Call(ctx, schema.CommandSetPipAutoEnterEnabled, schema.ArgumentSet{"autoEnable": enabled})
}

// InstallApk hands the package at path to the system installer.
func (s *Session) InstallApk(ctx context.Context, path string) (schema.Result, error) {
	return s.Call(ctx, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": path})
}

// Antifraud is the comment report forwarded to the anti-fraud companion app.
type Antifraud struct {
	Action      int32
	Oid         int64
	Type        int32
	Rpid        int64
	Root        int64
	Parent      int64
	Ctime       int64
	CommentText string
	Pictures    *string
	SourceID    string
	UID         int64
	Cookies     []string
}

func (af Antifraud) arguments() schema.ArgumentSet {
	a := schema.ArgumentSet{
		"action":       af.Action,
		"oid":          af.Oid,
		"type":         af.Type,
		"rpid":         af.Rpid,
		"root":         af.Root,
		"parent":       af.Parent,
		"ctime":        af.Ctime,
		"comment_text": af.CommentText,
		"source_id":    af.SourceID,
		"uid":          af.UID,
		"cookies":      af.Cookies,
	}
	if af.Pictures != nil {
		a["pictures"] = *af.Pictures
	}
	if af.Cookies == nil {
		a["cookies"] = []string{}
	}
	return a
}

// SendCommAntifraud forwards a comment report.
func (s *Session) SendCommAntifraud(ctx context.Context, report Antifraud) (schema.Result, error) {
	return s.Call(ctx, schema.CommandAntifraud, report.arguments())
}
