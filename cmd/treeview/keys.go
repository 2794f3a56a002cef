package main

import (
	"github.com/gdamore/tcell/v2"

	"grandtree.dev/internal/greetings"
	"grandtree.dev/internal/sim/scene"
	"grandtree.dev/internal/sim/scenestate"
)

type keyAction int

const (
	keyIgnore keyAction = iota
	keyCommand
	keyQuit
)

const helpLine = "space toggle  f form  c scatter  g greeting  r release  m music  q quit"

// keyBinding maps a key press to a scene command.
func keyBinding(key tcell.Key, ch rune) (scene.Command, keyAction) {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return scene.Command{}, keyQuit
	case tcell.KeyEnter:
		return scene.RandomGreeting(), keyCommand
	case tcell.KeyRune:
	default:
		return scene.Command{}, keyIgnore
	}
	switch ch {
	case 'q', 'Q':
		return scene.Command{}, keyQuit
	case ' ', 't':
		return scene.Toggle(), keyCommand
	case 'f':
		return scene.SetMode(scenestate.Formed), keyCommand
	case 'c':
		return scene.SetMode(scenestate.Chaos), keyCommand
	case 'g':
		return scene.RandomGreeting(), keyCommand
	case 'r':
		return scene.Release(), keyCommand
	case 'm', '*':
		return scene.StarClick(), keyCommand
	default:
		return scene.Command{}, keyIgnore
	}
}

// demoGreetings stands in for a Waline server when none is configured.
var demoGreetings = []greetings.Record{
	{ID: "demo-3", Nick: "Noel", Comment: "<p>Warm cocoa and <b>long</b> walks in the snow.</p>", InsertedAt: "2025-12-24T20:00:00Z"},
	{ID: "demo-2", Nick: "Holly", Comment: "<p>Merry Christmas to everyone far from home!</p>", InsertedAt: "2025-12-24T18:30:00Z"},
	{ID: "demo-1", Nick: "Jules", Comment: "<p>May the new year be kind.</p>", InsertedAt: "2025-12-23T09:15:00Z"},
}
