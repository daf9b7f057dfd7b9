package chatrelay

import "embed"

// StaticFS contains the browser chat UI served at the site root.
//
//go:embed static/*
var StaticFS embed.FS
