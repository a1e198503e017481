// Package core provides the value types shared by the highlighting pipeline:
// byte ranges and captures, colors, fonts, and the attribute vocabulary that
// styled sinks understand.
//
// This package breaks import cycles between the compositor, the theme
// resolvers and the sinks.
package core
