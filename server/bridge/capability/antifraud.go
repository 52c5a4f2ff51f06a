package capability

import (
	"github.com/gate4ai/hostbridge/server/bridge"
	"github.com/gate4ai/hostbridge/server/host"
	"github.com/gate4ai/hostbridge/shared/args"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

// Comment anti-fraud checker launched after a comment is posted.
var antifraudComponent = host.Component{
	Package: "icu.freedomIntrovert.biliSendCommAntifraud",
	Class:   "icu.freedomIntrovert.biliSendCommAntifraud.ByXposedLaunchedActivity",
}

var _ bridge.CommandGroup = (*AntifraudCapability)(nil)

type AntifraudCapability struct {
	logger   *zap.Logger
	invoker  *host.Invoker
	commands map[string]bridge.CommandHandler
}

func NewAntifraud(logger *zap.Logger, invoker *host.Invoker) *AntifraudCapability {
	ac := &AntifraudCapability{logger: logger, invoker: invoker}
	ac.commands = map[string]bridge.CommandHandler{
		schema.CommandAntifraud: ac.handleSendCommAntifraud,
	}
	return ac
}

func (ac *AntifraudCapability) Commands() map[string]bridge.CommandHandler {
	return ac.commands
}

// handleSendCommAntifraud forwards the posted comment to the checker. The
// checker is optional, so every failure is swallowed.
func (ac *AntifraudCapability) handleSendCommAntifraud(a schema.ArgumentSet) schema.Result {
	action := host.NewAction("")
	action.Component = antifraudComponent
	action.
		PutExtra("action", args.Get(a, "action", int32(0))).
		PutExtra("oid", args.Int64(a, "oid", 0)).
		PutExtra("type", args.Get(a, "type", int32(0))).
		PutExtra("rpid", args.Int64(a, "rpid", 0)).
		PutExtra("root", args.Int64(a, "root", 0)).
		PutExtra("parent", args.Int64(a, "parent", 0)).
		PutExtra("ctime", args.Int64(a, "ctime", 0)).
		PutExtra("comment_text", args.Get(a, "comment_text", ""))
	if pictures := args.OptionalString(a, "pictures"); pictures != nil {
		action.PutExtra("pictures", *pictures)
	}
	action.
		PutExtra("source_id", args.Get(a, "source_id", "")).
		PutExtra("uid", args.Int64(a, "uid", 0)).
		PutExtra("cookies", args.StringList(a, "cookies"))

	ac.invoker.Invoke(action)
	return schema.Success(nil)
}
