package domain

import (
	"slices"
	"testing"
)

func TestRoomRoles(t *testing.T) {
	room := Room{
		OwnerID:    "owner",
		CreatorIDs: []string{"c1", "owner"},
		PlayerIDs:  []string{"p1", "c1"},
	}
	cases := map[string]Role{
		"owner":   RoleOwner,
		"c1":      RoleCreator,
		"p1":      RolePlayer,
		"someone": RoleNone,
		"":        RoleNone,
	}
	for user, want := range cases {
		if got := room.RoleOf(user); got != want {
			t.Fatalf("RoleOf(%q) = %v, want %v", user, got, want)
		}
	}

	ids := room.ParticipantIDs()
	if !slices.Equal(ids, []string{"owner", "c1", "p1"}) {
		t.Fatalf("unexpected participants %v", ids)
	}
}

func TestQuizFilterMatches(t *testing.T) {
	quiz := Quiz{ID: "q1", CreatorID: "c1", GenreID: "g1", Completed: true}
	draft := quiz
	draft.Completed = false

	cases := []struct {
		name   string
		filter QuizFilter
		quiz   Quiz
		want   bool
	}{
		{name: "empty filter", filter: QuizFilter{}, quiz: quiz, want: true},
		{name: "by creator", filter: QuizFilter{CreatorIDs: []string{"c1"}}, quiz: quiz, want: true},
		{name: "by genre", filter: QuizFilter{CreatorIDs: []string{"c9"}, GenreIDs: []string{"g1"}}, quiz: quiz, want: true},
		{name: "no match", filter: QuizFilter{CreatorIDs: []string{"c9"}, GenreIDs: []string{"g9"}}, quiz: quiz, want: false},
		{name: "draft", filter: QuizFilter{}, quiz: draft, want: false},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(tc.quiz); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScoreRecordClone(t *testing.T) {
	record := NewScoreRecord("1")
	record.Sequence["1"] = "q1"
	record.Detail["p1"] = 2

	clone := record.Clone()
	clone.Sequence["1"] = "q2"
	clone.Detail["p1"] = 5

	if id, _ := record.QuizIDAt(1); id != "q1" {
		t.Fatalf("clone shares sequence with original")
	}
	if record.Detail["p1"] != 2 {
		t.Fatalf("clone shares detail with original")
	}
	if _, ok := record.QuizIDAt(2); ok {
		t.Fatalf("unexpected quiz at slot 2")
	}
	if record.Status.String() != "START" || Status(42).String() != "UNKNOWN(42)" {
		t.Fatalf("unexpected status names")
	}
}
