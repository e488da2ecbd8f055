// Package types provides core types shared across the printflow engine.
// This package has ZERO dependencies on other printflow packages to avoid
// circular imports. All other packages should import types from here.
package types
