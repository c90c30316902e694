package domain

// Button is one curated prompt shown by the /more command.
// Pressing it sends the stored Content as a prompt to the assistant.
type Button struct {
	ID      int
	Key     string
	Text    string
	Content string
	Active  bool
}

// SupportTopic is one selectable subject for a support ticket.
type SupportTopic struct {
	ID    int
	Emoji string
	Text  string
}

// Label returns the topic as displayed on keyboards and tickets.
func (t SupportTopic) Label() string {
	return t.Emoji + " " + t.Text
}
