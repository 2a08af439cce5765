package cli

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVersion(t *testing.T) {
	Convey("Given build-time version information", t, func() {
		defer SetVersion("dev", "none")
		SetVersion("v1.2.3", "abc1234")

		Convey("--version reports it", func() {
			var out bytes.Buffer
			root := newRootCmd()
			root.SetOut(&out)
			root.SetArgs([]string{"--version"})

			So(root.Execute(), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "v1.2.3")
			So(out.String(), ShouldContainSubstring, "abc1234")
		})
	})
}
