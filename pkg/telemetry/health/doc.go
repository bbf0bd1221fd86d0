// Package health provides the liveness, readiness and version endpoints of
// the decide server.
//
// Components register named checks; readiness runs them concurrently, each
// bounded by the checker timeout:
//
//	checker := health.New(2*time.Second, logger)
//	checker.RegisterCheck("rules", func(ctx context.Context) error {
//	    if client.Engine() == nil {
//	        return errors.New("no ruleset loaded")
//	    }
//	    return nil
//	})
//	checker.Register(mux, "1.0.0", "abc123")
//
// /ready answers 503 while any check fails.
package health
