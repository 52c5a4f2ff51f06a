package host

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known action, category and extra names.
const (
	ActionMain                = "android.intent.action.MAIN"
	ActionView                = "android.intent.action.VIEW"
	ActionMediaSearch         = "android.intent.action.MEDIA_SEARCH"
	ActionMediaPlayFromSearch = "android.media.action.MEDIA_PLAY_FROM_SEARCH"
	ActionAppOpenByDefault    = "android.settings.APP_OPEN_BY_DEFAULT_SETTINGS"
	ActionApplicationDetails  = "android.settings.APPLICATION_DETAILS_SETTINGS"
	CategoryHome              = "android.intent.category.HOME"
	CategoryDefault           = "android.intent.category.DEFAULT"
	ExtraQuery                = "query"
	ExtraMediaTitle           = "android.intent.extra.title"
	ExtraMediaArtist          = "android.intent.extra.artist"
	ExtraMediaAlbum           = "android.intent.extra.album"
	MIMETypePackageArchive    = "application/vnd.android.package-archive"
)

// Flag is a launch flag carried by an Action.
type Flag uint32

const (
	FlagNewTask Flag = 1 << iota
	FlagGrantReadURIPermission
)

func (f Flag) Has(other Flag) bool { return f&other == other }

func (f Flag) String() string {
	var names []string
	if f.Has(FlagNewTask) {
		names = append(names, "NEW_TASK")
	}
	if f.Has(FlagGrantReadURIPermission) {
		names = append(names, "GRANT_READ_URI_PERMISSION")
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}

// Component names an explicit target inside a package.
type Component struct {
	Package string
	Class   string
}

func (c Component) IsZero() bool { return c.Package == "" && c.Class == "" }

func (c Component) String() string {
	if c.IsZero() {
		return ""
	}
	return c.Package + "/" + c.Class
}

// Action describes one host-side side effect. A new Action is built for
// every attempt; the invoker never reuses one across strategies.
type Action struct {
	Name       string
	Data       string
	MIMEType   string
	Component  Component
	Categories []string
	Extras     map[string]any
	Flags      Flag
}

// NewAction returns an action with an initialised extras map.
func NewAction(name string) *Action {
	return &Action{Name: name, Extras: map[string]any{}}
}

func (a *Action) PutExtra(key string, value any) *Action {
	if a.Extras == nil {
		a.Extras = map[string]any{}
	}
	a.Extras[key] = value
	return a
}

func (a *Action) AddCategory(category string) *Action {
	a.Categories = append(a.Categories, category)
	return a
}

// ExtraString renders an extra as a string for command templates.
func (a *Action) ExtraString(key string) string {
	v, ok := a.Extras[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	}
	return fmt.Sprint(v)
}

func (a *Action) String() string {
	var b strings.Builder
	b.WriteString(a.Name)
	if !a.Component.IsZero() {
		fmt.Fprintf(&b, " cmp=%s", a.Component)
	}
	if a.Data != "" {
		fmt.Fprintf(&b, " dat=%s", a.Data)
	}
	if a.MIMEType != "" {
		fmt.Fprintf(&b, " typ=%s", a.MIMEType)
	}
	if len(a.Categories) > 0 {
		fmt.Fprintf(&b, " cat=%v", a.Categories)
	}
	if a.Flags != 0 {
		fmt.Fprintf(&b, " flg=%s", a.Flags)
	}
	if len(a.Extras) > 0 {
		keys := make([]string, 0, len(a.Extras))
		for k := range a.Extras {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, " extras=%v", keys)
	}
	return b.String()
}
