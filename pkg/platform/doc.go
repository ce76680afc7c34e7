// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes the operating system and CPU architecture
// identifiers used when matching the running machine against release assets.
package platform
