package sqlstore

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// MessagesLogColumns holds the columns for the "messages_log" table.
	MessagesLogColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "household_id", Type: field.TypeString},
		{Name: "channel", Type: field.TypeString},
		{Name: "subject", Type: field.TypeString},
		{Name: "body", Type: field.TypeString, Size: 2147483647},
		{Name: "status", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	// MessagesLogTable holds the schema information for the "messages_log" table.
	MessagesLogTable = &schema.Table{
		Name:       "messages_log",
		Columns:    MessagesLogColumns,
		PrimaryKey: []*schema.Column{MessagesLogColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "messages_log_household_channel_created",
				Unique:  false,
				Columns: []*schema.Column{MessagesLogColumns[1], MessagesLogColumns[2], MessagesLogColumns[6]},
			},
		},
	}

	// NotesColumns holds the columns for the "notes" table.
	NotesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "household_id", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "kind", Type: field.TypeString},
		{Name: "source", Type: field.TypeJSON, Nullable: true},
		{Name: "tags", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// NotesTable holds the schema information for the "notes" table.
	NotesTable = &schema.Table{
		Name:       "notes",
		Columns:    NotesColumns,
		PrimaryKey: []*schema.Column{NotesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "notes_household_created",
				Unique:  false,
				Columns: []*schema.Column{NotesColumns[1], NotesColumns[6]},
			},
		},
	}

	// ErrorAggregatesColumns holds the columns for the "error_aggregates" table.
	ErrorAggregatesColumns = []*schema.Column{
		{Name: "fingerprint", Type: field.TypeString},
		{Name: "level", Type: field.TypeString},
		{Name: "category", Type: field.TypeString},
		{Name: "scope", Type: field.TypeString},
		{Name: "last_message", Type: field.TypeString, Size: 2147483647},
		{Name: "stack", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "occurrences", Type: field.TypeInt, Default: 1},
		{Name: "first_seen", Type: field.TypeTime},
		{Name: "last_seen", Type: field.TypeTime},
	}
	// ErrorAggregatesTable holds the schema information for the "error_aggregates" table.
	ErrorAggregatesTable = &schema.Table{
		Name:       "error_aggregates",
		Columns:    ErrorAggregatesColumns,
		PrimaryKey: []*schema.Column{ErrorAggregatesColumns[0]},
	}
)

// itemColumns returns a fresh column set for a household collection table.
func itemColumns() []*schema.Column {
	return []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "household_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "details", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "status", Type: field.TypeString, Nullable: true},
		{Name: "due_at", Type: field.TypeTime, Nullable: true},
		{Name: "data", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
}

func itemTable(name string) *schema.Table {
	cols := itemColumns()
	return &schema.Table{
		Name:       name,
		Columns:    cols,
		PrimaryKey: []*schema.Column{cols[0]},
		Indexes: []*schema.Index{
			{
				Name:    name + "_household_created",
				Unique:  false,
				Columns: []*schema.Column{cols[1], cols[7]},
			},
		},
	}
}

// Tables holds all the tables in the schema.
var Tables = []*schema.Table{
	MessagesLogTable,
	NotesTable,
	ErrorAggregatesTable,
	itemTable("events"),
	itemTable("tasks"),
	itemTable("ride_offers"),
	itemTable("reminders"),
}
