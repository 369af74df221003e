package calendar

import "time"

// Calendar grid bounds: Monday to Friday, hourly rows from 09:00 to 17:00.
const (
	weekDays  = 5
	firstHour = 9
	lastHour  = 17
)

// WeekSlot is one hourly cell of the calendar grid.
type WeekSlot struct {
	Start       time.Time    `json:"startTime"`
	Available   bool         `json:"available"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

// WeekDay is one column of the grid.
type WeekDay struct {
	Date  string     `json:"date"`
	Slots []WeekSlot `json:"slots"`
}

// WeekView is the data behind the weekly calendar.
type WeekView struct {
	Start time.Time `json:"weekStart"`
	Days  []WeekDay `json:"days"`
}

// WeekStart returns midnight of the Monday on or before date.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	y, m, d := date.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, date.Location())
}

// Week lays out the working week containing date.
func (p *Practitioner) Week(date time.Time) WeekView {
	start := WeekStart(date)
	view := WeekView{Start: start}
	for i := 0; i < weekDays; i++ {
		day := start.AddDate(0, 0, i)
		col := WeekDay{Date: day.Format(time.DateOnly)}
		for h := firstHour; h <= lastHour; h++ {
			at := Clock(h * 60).On(day)
			col.Slots = append(col.Slots, WeekSlot{
				Start:       at,
				Available:   p.IsAvailable(at, at.Add(SessionLength)),
				Appointment: p.appointmentStartingAt(at),
			})
		}
		view.Days = append(view.Days, col)
	}
	return view
}

func (p *Practitioner) appointmentStartingAt(at time.Time) *Appointment {
	for _, a := range p.Appointments {
		if a.Occupies() && a.Start.Equal(at) {
			return a
		}
	}
	return nil
}
