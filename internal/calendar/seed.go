package calendar

import "time"

// DefaultSeedEvents returns the sample church events placed in the month of now
func DefaultSeedEvents(now time.Time) []Event {
	year, month, loc := now.Year(), now.Month(), now.Location()
	on := func(day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}

	return []Event{
		{
			ID:          "sunday-service",
			Title:       "Sunday Morning Worship",
			Date:        on(15),
			Time:        "9:00 AM",
			Location:    "Main Sanctuary",
			Type:        EventTypeService,
			Department:  "Main Church",
			Description: "Weekly worship service with communion",
			Recurring:   true,
		},
		{
			ID:                   "bible-study-1",
			Title:                "Midweek Bible Study",
			Date:                 on(18),
			Time:                 "7:00 PM",
			Location:             "Fellowship Hall",
			Type:                 EventTypeBibleStudy,
			Department:           "Adult Ministry",
			Description:          "Study of the Gospel of John",
			BiblicalSignificance: "Following Jesus through the Gospel of John",
		},
		{
			ID:          "youth-1",
			Title:       "Youth Group Meeting",
			Date:        on(20),
			Time:        "6:30 PM",
			Location:    "Youth Hall",
			Type:        EventTypeYouth,
			Department:  "Youth Ministry",
			Description: "Weekly youth gathering and Bible study",
		},
		{
			ID:          "children-1",
			Title:       "Children's Ministry",
			Date:        on(22),
			Time:        "11:00 AM",
			Location:    "Main Sanctuary",
			Type:        EventTypeChildren,
			Department:  "Children's Ministry",
			Description: "Weekly children's program",
		},
		{
			ID:                   "special-service",
			Title:                "Special Prayer Service",
			Date:                 on(24),
			Time:                 "7:00 PM",
			Location:             "Main Sanctuary",
			Type:                 EventTypeSpecial,
			Department:           "Main Church",
			Description:          "Monthly prayer and praise service",
			BiblicalSignificance: "Coming together in prayer (Matthew 18:20)",
		},
	}
}
