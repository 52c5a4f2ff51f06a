package capability

import (
	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/args"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

var _ bridge.CommandGroup = (*MediaCapability)(nil)

// MediaCapability hands a track off to an external music app.
type MediaCapability struct {
	logger   *zap.Logger
	invoker  *host.Invoker
	commands map[string]bridge.CommandHandler
}

func NewMedia(logger *zap.Logger, invoker *host.Invoker) *MediaCapability {
	mc := &MediaCapability{logger: logger, invoker: invoker}
	mc.commands = map[string]bridge.CommandHandler{
		schema.CommandMusic: mc.handleMusic,
	}
	return mc
}

func (mc *MediaCapability) Commands() map[string]bridge.CommandHandler {
	return mc.commands
}

// handleMusic reports true iff some app resolved and launched the search.
func (mc *MediaCapability) handleMusic(a schema.ArgumentSet) schema.Result {
	title := args.Get(a, "title", "")
	artist := args.OptionalString(a, "artist")
	album := args.OptionalString(a, "album")

	search := func(name string) func() (*host.Action, error) {
		return func() (*host.Action, error) {
			action := host.NewAction(name).AddCategory(host.CategoryDefault)
			action.PutExtra(host.ExtraQuery, title).PutExtra(host.ExtraMediaTitle, title)
			if artist != nil {
				action.PutExtra(host.ExtraMediaArtist, *artist)
			}
			if album != nil {
				action.PutExtra(host.ExtraMediaAlbum, *album)
			}
			return action, nil
		}
	}

	launched := mc.invoker.FirstResolving(
		host.Strategy{Name: "media-search", Build: search(host.ActionMediaSearch)},
		host.Strategy{Name: "play-from-search", Build: search(host.ActionMediaPlayFromSearch)},
	)
	if !launched {
		mc.logger.Debug("No music app resolved", zap.String("title", title))
	}
	return schema.Success(launched)
}
