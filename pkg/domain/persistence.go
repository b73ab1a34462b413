package domain

// Kind returns the entity type for a record value. Adapters use it as the
// row discriminator so one table can hold every collection.
func Kind(v any) EntityType {
	switch v.(type) {
	case Company, *Company:
		return EntityCompany
	case Task, *Task:
		return EntityTask
	case CalendarEvent, *CalendarEvent:
		return EntityEvent
	case Goal, *Goal:
		return EntityGoal
	case Generation, *Generation:
		return EntityGeneration
	case Activity, *Activity:
		return EntityActivity
	default:
		return ""
	}
}

// EntityTypes lists every stored collection in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityCompany,
		EntityTask,
		EntityEvent,
		EntityGoal,
		EntityGeneration,
		EntityActivity,
	}
}
