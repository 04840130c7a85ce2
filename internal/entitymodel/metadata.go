// Package entitymodel exposes runtime metadata about the embedded entity model.
package entitymodel

import "satcore/docs/schema"

// Version returns the entity model schema version, or "" when the embedded
// schema cannot be read.
func Version() string {
	version, err := schema.EntityModelVersion()
	if err != nil {
		return ""
	}
	return version
}
