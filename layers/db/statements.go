package db

import (
	"strings"
)

func Match(stmt string) string {
	return "MATCH " + stmt
}
func Merge(stmt string) string {
	return "MERGE " + stmt
}

// Set replaces every property of key with the map passed as $param.
func Set(key, param string) string {
	return "SET " + key + " = $" + param
}
func OrderBy(keys ...string) string {
	return "ORDER BY " + strings.Join(keys, ",")
}
func Return(keys ...string) string {
	return "RETURN " + strings.Join(keys, ",")
}
func DetachDelete(keys ...string) string {
	return "DETACH DELETE " + strings.Join(keys, ",")
}
