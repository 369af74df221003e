package notify

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSignature signs every client message unless configured otherwise.
const DefaultSignature = "The Children's Society"

// Templates renders the client communications.
type Templates struct {
	Signature      string
	ConsentBaseURL string
	Location       *time.Location
}

// Recipient is who a message goes to and on which channel.
type Recipient struct {
	Name    string
	Address string
	Method  Method
}

func (t Templates) signature() string {
	if t.Signature == "" {
		return DefaultSignature
	}
	return t.Signature
}

func (t Templates) local(at time.Time) time.Time {
	if t.Location != nil {
		return at.In(t.Location)
	}
	return at
}

func (t Templates) message(to Recipient, topic Topic, subject string, lines ...string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", to.Name)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nBest regards,\n%s", t.signature())
	return Message{To: to.Address, ToName: to.Name, Method: to.Method, Topic: topic, Subject: subject, Body: b.String()}
}

func (t Templates) when(start time.Time) []string {
	start = t.local(start)
	return []string{
		"Date: " + start.Format("Monday 2 January 2006"),
		"Time: " + start.Format("15:04"),
	}
}

// ConsentRequest asks the client to consent to therapy.
func (t Templates) ConsentRequest(to Recipient, referralID string) Message {
	link := referralID
	if t.ConsentBaseURL != "" {
		link = strings.TrimRight(t.ConsentBaseURL, "/") + "/consent/" + referralID
	}
	return t.message(to, TopicConsentRequest, "Please confirm your consent for therapy sessions",
		"You have been referred for therapy sessions with "+t.signature()+".",
		"Please review and record your consent here:",
		link,
	)
}

// Confirmation tells the client an appointment is booked.
func (t Templates) Confirmation(to Recipient, start time.Time, length time.Duration) Message {
	lines := []string{"Your therapy session has been scheduled for:"}
	lines = append(lines, t.when(start)...)
	lines = append(lines, "", fmt.Sprintf("The session will last %d minutes.", int(length.Minutes())))
	return t.message(to, TopicConfirmation, "Your therapy session has been scheduled", lines...)
}

// Cancellation tells the client an appointment is off. Only a therapist
// cancellation promises a follow-up to reschedule.
func (t Templates) Cancellation(to Recipient, start time.Time, byTherapist bool) Message {
	line := fmt.Sprintf("Your therapy session scheduled for %s has been cancelled", t.local(start).Format("Monday 2 January 2006 15:04"))
	if byTherapist {
		line += " by your therapist"
	}
	lines := []string{line + "."}
	if byTherapist {
		lines = append(lines, "", "We will contact you soon to reschedule.")
	}
	return t.message(to, TopicCancellation, "Therapy session cancelled", lines...)
}

// Reminder is sent the day before an appointment.
func (t Templates) Reminder(to Recipient, start time.Time, length time.Duration) Message {
	lines := []string{"This is a reminder that you have a therapy session scheduled for:"}
	lines = append(lines, t.when(start)...)
	lines = append(lines, "", fmt.Sprintf("The session will last %d minutes.", int(length.Minutes())))
	return t.message(to, TopicReminder, "Reminder: Therapy session tomorrow", lines...)
}
