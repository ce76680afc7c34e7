// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/quillhq/quill/cmd/quill"

func main() {
	cmd.Execute()
}
