// Package scraper drives a sync of the course portal into the local mirror.
//
// A run logs in, lists the enrolled courses, resolves the selection and then
// walks each course section by section. Every section owns a Worklist seeded
// with the section's links. Each link is classified with one HEAD request:
//
//   - downloadable files and content pages go to the Materializer, which
//     writes them unless a file of that name already exists
//   - folders go to the Expander, whose links are appended to the same
//     worklist
//   - everything else is ignored
//
// A failure inside one course, section or link is logged, counted in the
// Report and skipped. Login failures and interrupts stop the run. Either
// way the Finalizer records the outcome before Run returns.
//
// Usage:
//
//	rc := scraper.NewRunContext(ui.NewConsole(false, true), log)
//	s, err := scraper.New(client, store, cfg.Download.Exclude, rc, clock.WallClock, finalize)
//	if err != nil {
//	    return err
//	}
//	report, err := s.Run(ctx, scraper.Options{Username: user, Password: pass})
package scraper
