package calendar

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func mondayMorning(t *testing.T) *Practitioner {
	t.Helper()
	p := &Practitioner{ID: "p1"}
	require.NoError(t, p.SetWeeklyAvailability(Window{Day: time.Monday, Start: 9 * 60, End: 12 * 60}))
	return p
}

func TestIsAvailableRequiresWindow(t *testing.T) {
	p := mondayMorning(t)
	assert.True(t, p.IsAvailable(at(monday, 9, 0), at(monday, 9, 50)))
	assert.True(t, p.IsAvailable(at(monday, 11, 10), at(monday, 12, 0)))
	assert.False(t, p.IsAvailable(at(monday, 11, 30), at(monday, 12, 20)))
	assert.False(t, p.IsAvailable(at(monday, 8, 30), at(monday, 9, 20)))

	tuesday := monday.AddDate(0, 0, 1)
	assert.False(t, p.IsAvailable(at(tuesday, 9, 0), at(tuesday, 9, 50)))
}

func TestAbuttingAppointmentsDoNotConflict(t *testing.T) {
	p := mondayMorning(t)
	require.NoError(t, p.Book(&Appointment{ID: "a1", Start: at(monday, 9, 0), End: at(monday, 9, 50), Status: AppointmentScheduled}))

	require.NoError(t, p.Book(&Appointment{ID: "a2", Start: at(monday, 9, 50), End: at(monday, 10, 40), Status: AppointmentScheduled}))

	err := p.Book(&Appointment{ID: "a3", Start: at(monday, 9, 30), End: at(monday, 10, 20), Status: AppointmentScheduled})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Len(t, p.Appointments, 2)
}

func TestCancelledAppointmentFreesTime(t *testing.T) {
	p := mondayMorning(t)
	appt := &Appointment{ID: "a1", Start: at(monday, 9, 0), End: at(monday, 9, 50), Status: AppointmentScheduled}
	require.NoError(t, p.Book(appt))
	assert.False(t, p.IsAvailable(at(monday, 9, 0), at(monday, 9, 50)))

	appt.Status = AppointmentCancelled
	assert.True(t, p.IsAvailable(at(monday, 9, 0), at(monday, 9, 50)))
}

func TestBlockedIntervalOverlap(t *testing.T) {
	p := mondayMorning(t)
	require.NoError(t, p.AddBlockedInterval(BlockedInterval{Start: at(monday, 10, 0), End: at(monday, 10, 30), Reason: "supervision"}))

	assert.False(t, p.IsAvailable(at(monday, 9, 45), at(monday, 10, 35)))
	assert.False(t, p.IsAvailable(at(monday, 10, 10), at(monday, 11, 0)))
	assert.True(t, p.IsAvailable(at(monday, 9, 10), at(monday, 10, 0)))
	assert.True(t, p.IsAvailable(at(monday, 10, 30), at(monday, 11, 20)))

	assert.ErrorIs(t, p.AddBlockedInterval(BlockedInterval{Start: at(monday, 10, 0), End: at(monday, 10, 0)}), ErrInvalidInterval)
}

func TestSetWeeklyAvailabilityLastWriteWins(t *testing.T) {
	p := mondayMorning(t)
	require.NoError(t, p.SetWeeklyAvailability(Window{Day: time.Monday, Start: 13 * 60, End: 17 * 60}))
	require.NoError(t, p.SetWeeklyAvailability(Window{Day: time.Sunday, Start: 10 * 60, End: 11 * 60}))

	require.Len(t, p.Windows, 2)
	assert.Equal(t, time.Sunday, p.Windows[0].Day)
	w, ok := p.Window(time.Monday)
	require.True(t, ok)
	assert.Equal(t, Clock(13*60), w.Start)
	assert.False(t, p.IsAvailable(at(monday, 9, 0), at(monday, 9, 50)))

	assert.ErrorIs(t, p.SetWeeklyAvailability(Window{Day: time.Friday, Start: 600, End: 600}), ErrInvalidWindow)
}

func TestAvailableSlotsIsLazyAndRestartable(t *testing.T) {
	p := mondayMorning(t)
	slots := p.AvailableSlots(monday)

	first := slices.Collect(slots)
	require.Len(t, first, 3)
	assert.Equal(t, at(monday, 9, 0), first[0].Start)
	assert.Equal(t, at(monday, 9, 50), first[0].End)
	assert.Equal(t, at(monday, 11, 0), first[2].Start)

	require.NoError(t, p.Book(&Appointment{ID: "a1", Start: at(monday, 10, 0), End: at(monday, 10, 50), Status: AppointmentScheduled}))
	second := slices.Collect(slots)
	require.Len(t, second, 2)
	assert.Equal(t, at(monday, 11, 0), second[1].Start)

	for s := range slots {
		assert.Equal(t, at(monday, 9, 0), s.Start)
		break
	}

	assert.Empty(t, slices.Collect(p.AvailableSlots(monday.AddDate(0, 0, 2))))
}

func TestAvailableSlotsStopAtWindowEnd(t *testing.T) {
	p := &Practitioner{}
	require.NoError(t, p.SetWeeklyAvailability(Window{Day: time.Monday, Start: 9*60 + 30, End: 11*60 + 40}))

	var starts []string
	for s := range p.AvailableSlots(monday) {
		starts = append(starts, s.Start.Format("15:04"))
	}
	assert.Equal(t, []string{"10:00"}, starts[:1])
	assert.NotContains(t, starts, "11:00")
}

func TestAppointmentQueries(t *testing.T) {
	p := mondayMorning(t)
	require.NoError(t, p.Book(&Appointment{ID: "a1", ReferralID: "r1", Start: at(monday, 9, 0), End: at(monday, 9, 50), Status: AppointmentCancelled}))
	assert.False(t, p.HasHistory("r1"))
	require.NoError(t, p.Book(&Appointment{ID: "a2", ReferralID: "r1", Start: at(monday, 10, 0), End: at(monday, 10, 50), Status: AppointmentScheduled}))

	assert.True(t, p.HasHistory("r1"))
	assert.Equal(t, 1, p.OpenCount("r1"))
	assert.Len(t, p.AppointmentsFor("r1"), 2)

	got, err := p.FindAppointment("a2")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ReferralID)
	_, err = p.FindAppointment("zz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClockParsing(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(570), c)
	assert.Equal(t, "09:30", c.String())

	for _, bad := range []string{"", "9", "25:00", "10:75", "24:10"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidWindow, bad)
	}

	data, err := json.Marshal(Window{Day: time.Monday, Start: 540, End: 720})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":1,"startTime":"09:00","endTime":"12:00"}`, string(data))
}

func TestParseWeekday(t *testing.T) {
	for _, raw := range []string{"monday", "Mon", "1"} {
		d, err := ParseWeekday(raw)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, d)
	}
	_, err := ParseWeekday("someday")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
