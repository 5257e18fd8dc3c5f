package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkixbridge/bridge/pkg/profile"
)

func TestGroupMembership(t *testing.T) {
	p := profile.New("u1", "bot", "", "")
	p.SetGroups([]string{"g1", "g2"})

	assert.True(t, p.HasGroup("g1"))
	assert.False(t, p.HasGroup("g3"))

	p.AddGroup("g3")
	assert.True(t, p.HasGroup("g3"))

	p.RemoveGroup("g1")
	assert.False(t, p.HasGroup("g1"))
}

func TestFriendMembership(t *testing.T) {
	p := profile.New("u1", "bot", "", "")
	p.AddFriend("f1")

	assert.True(t, p.HasFriend("f1"))
	p.RemoveFriend("f1")
	assert.False(t, p.HasFriend("f1"))
}
