package compiler

import "strings"

// CommandKind names a persistent compiler command.
type CommandKind uint8

const (
	CmdLogErrors CommandKind = iota
	CmdCompile
)

func (k CommandKind) String() string {
	switch k {
	case CmdLogErrors:
		return "logerrors"
	case CmdCompile:
		return "compile"
	}
	return "unknown"
}

// Trigger records what caused a command to be issued.
type Trigger uint8

const (
	TriggerSave Trigger = iota
	TriggerManual
)

func (t Trigger) String() string {
	if t == TriggerManual {
		return "manual"
	}
	return "save"
}

// Command is one line written to the persistent compiler's stdin.
type Command struct {
	Kind    CommandKind
	Path    string
	Trigger Trigger
}

// LogErrors asks the compiler to report errors of the next compile.
func LogErrors(trigger Trigger) Command {
	return Command{Kind: CmdLogErrors, Trigger: trigger}
}

// Compile asks the compiler to compile the workspace into path.
func Compile(path string, trigger Trigger) Command {
	return Command{Kind: CmdCompile, Path: path, Trigger: trigger}
}

// Wire returns the CRLF-terminated command line.
func (c Command) Wire() string {
	var b strings.Builder
	switch c.Kind {
	case CmdCompile:
		b.WriteString("/compile ")
		b.WriteString(c.Path)
	default:
		b.WriteString("/logerrors")
	}
	b.WriteString("\r\n")
	return b.String()
}
