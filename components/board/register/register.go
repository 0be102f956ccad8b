// Package register registers all board models.
package register

import (
	// for boards.
	_ "go.viam.com/diffdrive/components/board/fake"
	_ "go.viam.com/diffdrive/components/board/gpiochip"
	_ "go.viam.com/diffdrive/components/board/periph"
	_ "go.viam.com/diffdrive/components/board/sysfs"
)
