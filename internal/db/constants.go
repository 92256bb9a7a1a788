package db

// timeLayout is how timestamps are stored. Day lookups match on its
// "YYYY-MM-DD" prefix, so it must start with the date.
const timeLayout = "2006-01-02 15:04:05"

// dayPrefixLayout formats the LIKE prefix for a calendar day.
const dayPrefixLayout = "2006-01-02"
