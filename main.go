// elassemble: a high-performance de novo genome assembler.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elassemble/blob/master/LICENSE.txt>.

// elassemble is a de novo genome assembler for short sequencing
// reads, based on de Bruijn graphs.
//
// Please see https://github.com/exascience/elassemble for a
// documentation of the tool.
package main

import (
	"fmt"
	"os"

	"github.com/exascience/elassemble/cmd"
)

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	cmd.Execute()
}
