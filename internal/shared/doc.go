// Package shared holds code used across the dessertcpi packages that belongs to
// no single pipeline stage.
//
// The testutil subpackage provides:
//
//   - NewTestLogger, a slog logger backed by a capturing handler, plus
//     AssertCondition and AssertNoErrors for checking soft-condition warnings
//   - BuildPanel and FromRows for synthetic district/quarter panels
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    panel := testutil.BuildPanel(t, testutil.PanelSpec{
//	        Entities: []string{"Gangnam-gu", "Mapo-gu"},
//	        Start:    frame.Period{Year: 2019, Quarter: 1},
//	        Quarters: 12,
//	    })
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
//
// Business logic does not belong here.
package shared
