// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/toolmodel/toolmodel/cmd/toolmodel"

func main() {
	cmd.Execute()
}
