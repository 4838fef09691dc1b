// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/shellpod/shellpod/cmd/shellpod"

func main() {
	cmd.Execute()
}
