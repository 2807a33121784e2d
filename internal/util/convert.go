// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 GB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < 0 {
		return "-" + FormatBytes(-n)
	}
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 4; v /= unit {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	prec := 1
	if value >= 100 {
		prec = 0
	}
	return strconv.FormatFloat(value, 'f', prec, 64) + " " + string("KMGTP"[exp]) + "B"
}
