package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/sim/scenestate"
)

func TestKeyBinding(t *testing.T) {
	cases := []struct {
		key    tcell.Key
		ch     rune
		cmd    scene.Command
		action keyAction
	}{
		{tcell.KeyRune, ' ', scene.Toggle(), keyCommand},
		{tcell.KeyRune, 'f', scene.SetMode(scenestate.Formed), keyCommand},
		{tcell.KeyRune, 'c', scene.SetMode(scenestate.Chaos), keyCommand},
		{tcell.KeyRune, 'g', scene.RandomGreeting(), keyCommand},
		{tcell.KeyEnter, 0, scene.RandomGreeting(), keyCommand},
		{tcell.KeyRune, 'r', scene.Release(), keyCommand},
		{tcell.KeyRune, 'm', scene.StarClick(), keyCommand},
		{tcell.KeyRune, 'q', scene.Command{}, keyQuit},
		{tcell.KeyEscape, 0, scene.Command{}, keyQuit},
		{tcell.KeyCtrlC, 0, scene.Command{}, keyQuit},
		{tcell.KeyRune, 'x', scene.Command{}, keyIgnore},
		{tcell.KeyTab, 0, scene.Command{}, keyIgnore},
	}
	for _, tc := range cases {
		cmd, action := keyBinding(tc.key, tc.ch)
		assert.Equal(t, tc.action, action, "key %v %q", tc.key, tc.ch)
		assert.Equal(t, tc.cmd, cmd, "key %v %q", tc.key, tc.ch)
	}
}

func TestDemoGreetingsAreNewestFirst(t *testing.T) {
	for i := 1; i < len(demoGreetings); i++ {
		assert.Greater(t, demoGreetings[i-1].InsertedAt, demoGreetings[i].InsertedAt)
	}
}
