package commands

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuad-daoud/warden/platform"
)

func TestParseDice(t *testing.T) {
	for _, tc := range []struct {
		in           string
		rolls, limit int
		ok           bool
	}{
		{"2d6", 2, 6, true},
		{"1D20", 1, 20, true},
		{"100d1000", 100, 1000, true},
		{"d6", 0, 0, false},
		{"0d6", 0, 0, false},
		{"2d0", 0, 0, false},
		{"101d6", 0, 0, false},
		{"2d1001", 0, 0, false},
		{"2dx", 0, 0, false},
		{"abc", 0, 0, false},
	} {
		t.Run(tc.in, func(t *testing.T) {
			rolls, limit, err := ParseDice(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrDiceFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.rolls, rolls)
			assert.Equal(t, tc.limit, limit)
		})
	}
}

func TestRoll(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "roll", "3d6")
	require.Equal(t, "🎲 Dice Roll", r.Title())
	assert.Equal(t, "Rolling 3d6", r.Last().Embeds[0].Description)

	results := strings.Split(fieldValue(t, r.Last(), "Results"), ", ")
	require.Len(t, results, 3)
	sum := 0
	for _, v := range results {
		n, err := strconv.Atoi(v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 6)
		sum += n
	}
	assert.Equal(t, strconv.Itoa(sum), fieldValue(t, r.Last(), "Total"))

	r = hs.run(hs.user, "roll", "lots")
	assert.Equal(t, "❌ Invalid Format", r.Title())
	assert.Equal(t, "Format must be NdN (e.g., 2d6)", r.Last().Embeds[0].Description)
}

func TestRandom(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "random", "5", "5")
	assert.Equal(t, "5", fieldValue(t, r.Last(), "Result"))

	r = hs.run(hs.user, "random")
	assert.Equal(t, "Generated number between 1 and 100:", r.Last().Embeds[0].Description)
	n, err := strconv.Atoi(fieldValue(t, r.Last(), "Result"))
	require.NoError(t, err)
	assert.True(t, n >= 1 && n <= 100)

	r = hs.run(hs.user, "random", "10", "1")
	assert.Equal(t, "❌ Invalid Argument", r.Title())

	t.Run("full int range", func(t *testing.T) {
		r := hs.run(hs.user, "random", strconv.Itoa(math.MinInt), strconv.Itoa(math.MaxInt))
		assert.Equal(t, "🎲 Random Number", r.Title())
		_, err := strconv.Atoi(fieldValue(t, r.Last(), "Result"))
		assert.NoError(t, err)

		r = hs.run(hs.user, "random", strconv.Itoa(math.MaxInt-1), strconv.Itoa(math.MaxInt))
		n, err := strconv.Atoi(fieldValue(t, r.Last(), "Result"))
		require.NoError(t, err)
		assert.True(t, n >= math.MaxInt-1)

		r = hs.run(hs.user, "random", "-3", "-3")
		assert.Equal(t, "-3", fieldValue(t, r.Last(), "Result"))
	})
}

func TestChanceCommands(t *testing.T) {
	hs := newHarness(t)

	r := hs.run(hs.user, "coinflip")
	assert.Contains(t, []string{"The coin landed on: **Heads**", "The coin landed on: **Tails**"}, r.Last().Embeds[0].Description)

	r = hs.run(hs.user, "8ball", "will", "it", "rain?")
	assert.Equal(t, "will it rain?", fieldValue(t, r.Last(), "Question"))
	assert.Contains(t, eightBallAnswers, fieldValue(t, r.Last(), "Answer"))

	r = hs.run(hs.user, "joke")
	assert.Contains(t, jokes, r.Last().Embeds[0].Description)
}

func TestSplitPollOptions(t *testing.T) {
	assert.Equal(t, []string{"pizza", "tacos", "sushi"}, SplitPollOptions(" pizza, tacos,, sushi ,"))
	assert.Empty(t, SplitPollOptions(" , "))
}

func TestPoll(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "poll", "Lunch?", "pizza,", "tacos,,", "sushi")
	require.Equal(t, "📊 Poll", r.Title())
	assert.Equal(t, "Lunch?", r.Last().Embeds[0].Description)
	assert.Equal(t, "1️⃣ pizza", fieldValue(t, r.Last(), "Option 1"))
	assert.Equal(t, "3️⃣ sushi", fieldValue(t, r.Last(), "Option 3"))
	reactions := hs.fake.Mutations("AddReaction")
	require.Len(t, reactions, 3)
	assert.Equal(t, "2️⃣", reactions[1].Target)

	r = hs.run(hs.user, "poll", "Lunch?", "pizza")
	assert.Equal(t, "You need at least 2 options! Separate them with commas.", r.Title())

	r = hs.run(hs.user, "poll", "Count?", "1,2,3,4,5,6,7,8,9,10,11")
	assert.Equal(t, "You can only have up to 10 options!", r.Title())
}

func TestQuickpoll(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "quickpoll", "Pizza", "tonight?")
	assert.Equal(t, "Pizza tonight?", r.Last().Embeds[0].Description)
	assert.Equal(t, "Poll by bob", r.Last().Embeds[0].Footer)

	reactions := hs.fake.Mutations("AddReaction")
	require.Len(t, reactions, 2)
	assert.Equal(t, "👍", reactions[0].Target)
	assert.Equal(t, "👎", reactions[1].Target)
}

func TestSayDeletesInvocation(t *testing.T) {
	hs := newHarness(t)
	msg := hs.fake.AddMessage(hs.channel, platform.Message{Content: "+say hello there"})

	r := hs.dispatch(platform.CommandEvent{Author: *hs.mod, Name: "say", MessageID: msg.ID, Tokens: []string{"hello", "there"}})
	assert.Equal(t, "hello there", r.Last().Embeds[0].Description)
	deleted := hs.fake.Mutations("DeleteMessage")
	require.Len(t, deleted, 1)
	assert.Equal(t, msg.ID.String(), deleted[0].Target)

	r = hs.run(hs.user, "say", "hi")
	assert.Equal(t, "❌ Missing Permissions", r.Title())
}

func TestEmbed(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "embed", "Rules", "Be", "nice")
	assert.Equal(t, "Rules", r.Title())
	assert.Equal(t, "Be nice", r.Last().Embeds[0].Description)
}
