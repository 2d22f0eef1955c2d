// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for ragdash.
//
// Colors are Lip Gloss AdaptiveColors so the dashboard and CLI output read
// on both light and dark terminals. Theme bundles the styles the dashboard
// panels use; the Render* helpers pair every status color with an ASCII
// marker so meaning never depends on color alone.
//
// # Usage
//
//	theme := styles.NewTheme()
//	fmt.Println(theme.PanelTitle.Render("Results"))
//	fmt.Println(styles.RenderError("backend unreachable"))
package styles
