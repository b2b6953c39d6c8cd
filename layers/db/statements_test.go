package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatements(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"Match", Match("something"), "MATCH something"},
		{"Merge", Merge("(t:Task {id: $id})"), "MERGE (t:Task {id: $id})"},
		{"Set", Set("t", "props"), "SET t = $props"},
		{"OrderBy", OrderBy("t.dueAt", "t.id"), "ORDER BY t.dueAt,t.id"},
		{"Return", Return("t"), "RETURN t"},
		{"DetachDelete", DetachDelete("t", "m"), "DETACH DELETE t,m"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.got)
		})
	}
}
