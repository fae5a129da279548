/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package perf

import (
	"bytes"
	"errors"
	"os"
	"strconv"
)

const bytesPerMB = 1024 * 1024

// MemoryMB returns the resident memory of the current process in megabytes.
// Read failures yield 0.
func MemoryMB() float64 {
	v, err := residentBytes()
	if err != nil || v < 0 {
		return 0
	}
	return float64(v) / bytesPerMB
}

// statmRSS parses /proc/<pid>/statm content: the second field is the
// resident set in pages.
func statmRSS(data []byte, pageSize int) (int64, error) {
	fields := bytes.Fields(data)
	if len(fields) < 2 {
		return 0, errors.New("statm: short read")
	}
	pages, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0, err
	}
	return pages * int64(pageSize), nil
}

func readStatm(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return statmRSS(data, os.Getpagesize())
}
