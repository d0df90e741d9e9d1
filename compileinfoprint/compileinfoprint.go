// compileinfoprint is imported for the side effect of logging the build
// information of the binary at startup. Set PICO_QUIET_BUILDINFO to any
// value to silence it.
package compileinfoprint

import (
	"log"
	"os"

	"github.com/carbocation/pico/compileinfo"
)

func init() {
	if os.Getenv("PICO_QUIET_BUILDINFO") != "" {
		return
	}
	log.Println(compileinfo.Get())
}
