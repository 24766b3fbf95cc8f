// Package client is the Go SDK for a hotelledger node.
//
// It wraps the node's JSON API: submitting bookings, mining the pending
// queue, reading blocks and asking the node to verify its chain.
//
//	c, err := client.New("http://localhost:5000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = c.SubmitBooking(ctx, client.BookingRequest{
//	    CustomerName: "Asha Rao",
//	    RoomNumber:   "101",
//	    CheckIn:      "2024-03-01",
//	    CheckOut:     "2024-03-04",
//	    Amount:       "4500",
//	})
//	block, err := c.Mine(ctx)
//
// # Auditing without trusting the node
//
// VerifyLocally downloads the whole chain and recomputes every block hash
// and back-link on the caller's side, so a node that lies in /ledger/verify
// is still caught. Failures are reported as *IntegrityError, whose cause is
// ErrHashMismatch or ErrBrokenLink.
package client
