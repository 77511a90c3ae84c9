// Package moodle is the HTTP session with the Moodle-based course portal.
//
// A Client owns a cookie jar, so one Login carries authentication for every
// later request. Requests that hit a gateway error (502, 503, 504) or fail
// at the network level are retried with exponential backoff before the
// failure is reported.
//
// Errors carry a kind from nalanda/pkg/errors:
//   - KindLogin when the portal does not show a logged-in landing page
//   - KindNetworkFatal when a request failed after all retries or returned
//     a status of 400 or above
//   - KindInterrupt when the request context was cancelled
//
// Example usage:
//
//	client, err := moodle.NewClient(moodle.Options{MaxAttempts: 5})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	landing, err := client.Login(ctx, "f2019001", password)
//	if err != nil {
//	    return err
//	}
//	courses, err := parser.ParseCourses(strings.NewReader(landing))
package moodle
