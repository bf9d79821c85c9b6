// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package models

// ScreenClass coarsely classifies display size for quality selection.
type ScreenClass string

const (
	ScreenSmall ScreenClass = "small"
	ScreenLarge ScreenClass = "large"
)

// DeviceProfile describes the device a feed session renders on.
type DeviceProfile struct {
	Type   DeviceType  `json:"type"`
	Screen ScreenClass `json:"screen"`
}

// NetworkKind is the transport currently carrying traffic.
type NetworkKind string

const (
	NetworkNone     NetworkKind = "none"
	NetworkWiFi     NetworkKind = "wifi"
	NetworkCellular NetworkKind = "cellular"
	NetworkEthernet NetworkKind = "ethernet"
)

// LinkQuality is the observed quality of the current link.
type LinkQuality string

const (
	LinkGood LinkQuality = "good"
	LinkPoor LinkQuality = "poor"
)

// NetworkState is a snapshot of connectivity used to pick a quality tier.
type NetworkState struct {
	Connected bool        `json:"connected"`
	Kind      NetworkKind `json:"kind"`
	Quality   LinkQuality `json:"quality"`
}
