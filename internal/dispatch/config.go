// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"github.com/jeranaias/nexus-tui/internal/apierr"
)

// Parameter bounds accepted by the gateway.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 4000
	MinDimension   = 256
	MaxDimension   = 2048
)

// Image quality and style values.
const (
	QualityStandard = "standard"
	QualityHD       = "hd"
	StyleVivid      = "vivid"
	StyleNatural    = "natural"
)

// ChatConfig tunes one chat completion.
type ChatConfig struct {
	Temperature float64
	MaxTokens   int
}

// DefaultChatConfig returns the defaults the gateway itself uses.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{Temperature: 0.7, MaxTokens: 1000}
}

// Validate checks the chat parameters against their bounds.
func (c ChatConfig) Validate() error {
	if c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return apierr.Invalid(apierr.OpChat, "temperature %.2f outside [%.0f, %.0f]", c.Temperature, MinTemperature, MaxTemperature)
	}
	if c.MaxTokens < MinMaxTokens || c.MaxTokens > MaxMaxTokens {
		return apierr.Invalid(apierr.OpChat, "max_tokens %d outside [%d, %d]", c.MaxTokens, MinMaxTokens, MaxMaxTokens)
	}
	return nil
}

// ImageConfig tunes one image generation.
type ImageConfig struct {
	Model   string
	Width   int
	Height  int
	Quality string
	Style   string
}

// DefaultImageConfig returns the gateway defaults for model.
func DefaultImageConfig(model string) ImageConfig {
	return ImageConfig{
		Model:   model,
		Width:   1024,
		Height:  1024,
		Quality: QualityStandard,
		Style:   StyleVivid,
	}
}

// Validate checks the image parameters. Model membership is checked against
// the catalog by the dispatcher.
func (c ImageConfig) Validate() error {
	if c.Model == "" {
		return apierr.Invalid(apierr.OpImage, "no image model selected")
	}
	if c.Width < MinDimension || c.Width > MaxDimension {
		return apierr.Invalid(apierr.OpImage, "width %d outside [%d, %d]", c.Width, MinDimension, MaxDimension)
	}
	if c.Height < MinDimension || c.Height > MaxDimension {
		return apierr.Invalid(apierr.OpImage, "height %d outside [%d, %d]", c.Height, MinDimension, MaxDimension)
	}
	switch c.Quality {
	case QualityStandard, QualityHD:
	default:
		return apierr.Invalid(apierr.OpImage, "quality %q must be %s or %s", c.Quality, QualityStandard, QualityHD)
	}
	switch c.Style {
	case StyleVivid, StyleNatural:
	default:
		return apierr.Invalid(apierr.OpImage, "style %q must be %s or %s", c.Style, StyleVivid, StyleNatural)
	}
	return nil
}
