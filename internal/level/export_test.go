// SPDX-License-Identifier: MIT
package level

var (
	ReferenceLevels = referenceLevels
	Recording       = recording
	RelClose        = relClose
)
