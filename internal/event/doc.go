// Package event provides a pub-sub event bus so that the CLI, the watch loop
// and the terminal viewer can react to engine activity without depending on
// each other.
//
// # Main Types
//
//   - [Event]: interface with EventType() and Timestamp()
//   - [Bus]: synchronous, thread-safe dispatcher
//   - [Handler]: func(Event)
//
// # Event Types
//
//   - schedule.loaded, schedule.changed
//   - analysis.completed, analysis.failed, result.discarded
//   - recovery.planned, whatif.finished
//
// # Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeResultDiscarded, func(e event.Event) {
//	    d := e.(event.ResultDiscardedEvent)
//	    fmt.Printf("generation %d superseded by %d\n", d.Generation, d.Current)
//	})
//	bus.Publish(event.NewResultDiscardedEvent(3, 4))
//
// Handlers run on the publishing goroutine. A panicking handler is recovered
// and logged; delivery continues with the remaining handlers.
package event
