package model

// Email is a rendered message ready for a mail transport
type Email struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTML     string
}

// Delivery is what a mail transport reports back after accepting an email.
// Simulated is set when no transport credentials are configured and nothing left the process.
type Delivery struct {
	ID        string
	Simulated bool
}
