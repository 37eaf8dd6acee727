// Package sweeper expires cart items whose checkout lock has lapsed.
//
// A Sweeper asks its Lister for a batch of candidates and runs ManageState on
// each through the lifecycle controller, a few at a time. The controller
// re-checks every item, so a candidate that was purchased or re-locked since
// it was listed is simply skipped.
//
//	s, err := sweeper.New(store, controller,
//		sweeper.WithInterval(30*time.Second),
//		sweeper.WithConcurrency(8),
//	)
//	if err != nil {
//		return err
//	}
//	go s.Start(ctx)
package sweeper
