package schema

// Command names understood by the bridge.
const (
	CommandPing                   = "ping"
	CommandBack                   = "back"
	CommandAntifraud              = "biliSendCommAntifraud"
	CommandLinkVerifySettings     = "linkVerifySettings"
	CommandMusic                  = "music"
	CommandSetPipAutoEnterEnabled = "setPipAutoEnterEnabled"
	CommandInstallApk             = "installApk"
)

// ArgumentSet is the loosely typed payload of a command. Values are strings,
// numbers, booleans, lists of strings or nil. It is never mutated after the
// command is built.
type ArgumentSet map[string]any

// Command is a single inbound call from the embedded runtime.
type Command struct {
	Name      string
	Arguments ArgumentSet
}

// NewCommand returns a command with a non-nil argument set.
func NewCommand(name string, args ArgumentSet) Command {
	if args == nil {
		args = ArgumentSet{}
	}
	return Command{Name: name, Arguments: args}
}
