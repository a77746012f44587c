// Package dispatch implements CommandDispatcher (C5): routing a Command
// to every registered handler willing to accept it, collecting their
// Results into one Answer.
package dispatch

import (
	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/model"
)

// Handler is implemented by components able to execute some Commands.
// Accept and Handle may be called concurrently across different
// Commands and must be safe for that.
type Handler interface {
	// Accept reports whether this handler can execute cmd.
	Accept(cmd *model.Command) (bool, error)

	// Handle executes cmd. It must add exactly one Result to ans and
	// transition it to SUCCESS or FAILED before returning, even when
	// handling fails.
	Handle(cmd *model.Command, ans *answer.Answer)
}

// Listener observes dispatch events. OnDispatch fires before a command
// reaches its handlers.
type Listener interface {
	OnDispatch(cmd *model.Command)
}
