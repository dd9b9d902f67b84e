package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriority_Valid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.True(t, PriorityHigh.Valid())

	assert.False(t, Priority("urgent").Valid())
	assert.False(t, Priority("").Valid())
	assert.False(t, Priority("Medium").Valid())
}

func TestTask_TagList(t *testing.T) {
	task := &Task{Tags: "home,work,errand"}
	assert.Equal(t, []string{"home", "work", "errand"}, task.TagList())

	//空文字は空スライス（nilではなく）
	empty := &Task{Tags: ""}
	assert.Equal(t, []string{}, empty.TagList())
}

func TestJoinTags(t *testing.T) {
	assert.Equal(t, "home,work", JoinTags([]string{"home", "work"}))
	assert.Equal(t, "", JoinTags(nil))
}
