// Package orchestrator runs one conversation: it classifies each query into
// a pipeline of agents, executes the stages in order and streams every agent
// event, followed by exactly one message-done event per turn, to a bounded
// channel read by the transport.
//
// Typical use:
//
//	o := orchestrator.New(octx, func(o *orchestrator.Options) {
//	    o.Pool = pool
//	    o.Tools = registry
//	})
//	defer o.Close()
//
//	go func() {
//	    for e := range o.Events() {
//	        send(e)
//	    }
//	}()
//
//	err := o.Process(ctx, "how do I install nginx on ubuntu?")
//
// Answers to question events are routed back with ResolveUserAnswer.
package orchestrator
