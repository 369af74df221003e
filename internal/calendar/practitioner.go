package calendar

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Practitioner holds one clinician's availability and appointment book.
type Practitioner struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Windows      []Window          `json:"availability"`
	Blocked      []BlockedInterval `json:"blockedTimes"`
	Appointments []*Appointment    `json:"appointments"`
}

// Window returns the weekly window for day.
func (p *Practitioner) Window(day time.Weekday) (Window, bool) {
	for _, w := range p.Windows {
		if w.Day == day {
			return w, true
		}
	}
	return Window{}, false
}

// IsAvailable reports whether [start,end) sits inside the day's window and
// overlaps neither a blocked interval nor an appointment that still holds
// its time.
func (p *Practitioner) IsAvailable(start, end time.Time) bool {
	w, ok := p.Window(start.Weekday())
	if !ok || !w.Contains(start, end) {
		return false
	}
	for _, b := range p.Blocked {
		if overlaps(b.Start, b.End, start, end) {
			return false
		}
	}
	for _, a := range p.Appointments {
		if a.Occupies() && overlaps(a.Start, a.End, start, end) {
			return false
		}
	}
	return true
}

// SetWeeklyAvailability upserts the window for w.Day. The last write wins.
func (p *Practitioner) SetWeeklyAvailability(w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	for i := range p.Windows {
		if p.Windows[i].Day == w.Day {
			p.Windows[i] = w
			return nil
		}
	}
	p.Windows = append(p.Windows, w)
	slices.SortFunc(p.Windows, func(a, b Window) int { return int(a.Day) - int(b.Day) })
	return nil
}

// AddBlockedInterval appends a block. Blocks never expire.
func (p *Practitioner) AddBlockedInterval(b BlockedInterval) error {
	if !b.Start.Before(b.End) {
		return ErrInvalidInterval
	}
	p.Blocked = append(p.Blocked, b)
	return nil
}

// AvailableSlots yields the free session-length slots of date, one per hour
// from the window's opening hour. The sequence is evaluated lazily against
// the current state each time it is ranged over.
func (p *Practitioner) AvailableSlots(date time.Time) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		w, ok := p.Window(date.Weekday())
		if !ok {
			return
		}
		closing := w.End.On(date)
		for start := Clock(w.Start.Hour() * 60).On(date); !start.Add(SessionLength).After(closing); start = start.Add(time.Hour) {
			end := start.Add(SessionLength)
			if !p.IsAvailable(start, end) {
				continue
			}
			if !yield(Slot{Start: start, End: end}) {
				return
			}
		}
	}
}

// Book adds appt to the book if its interval is free.
func (p *Practitioner) Book(appt *Appointment) error {
	if !p.IsAvailable(appt.Start, appt.End) {
		return fmt.Errorf("%w: %s-%s", ErrSlotUnavailable, appt.Start.Format(time.DateTime), appt.End.Format(time.Kitchen))
	}
	p.Appointments = append(p.Appointments, appt)
	return nil
}

// FindAppointment looks an appointment up by id.
func (p *Practitioner) FindAppointment(id string) (*Appointment, error) {
	for _, a := range p.Appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
}

// AppointmentsFor returns every appointment of a referral in booking order.
func (p *Practitioner) AppointmentsFor(referralID string) []*Appointment {
	var out []*Appointment
	for _, a := range p.Appointments {
		if a.ReferralID == referralID {
			out = append(out, a)
		}
	}
	return out
}

// OpenCount counts a referral's appointments that are booked and not closed.
func (p *Practitioner) OpenCount(referralID string) int {
	n := 0
	for _, a := range p.AppointmentsFor(referralID) {
		if a.Open() {
			n++
		}
	}
	return n
}

// HasHistory reports whether a referral has any appointment that was not cancelled.
func (p *Practitioner) HasHistory(referralID string) bool {
	for _, a := range p.AppointmentsFor(referralID) {
		if a.Occupies() {
			return true
		}
	}
	return false
}
