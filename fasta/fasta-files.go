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

// Package fasta reads sequencing reads from FASTA and FASTQ files, and
// writes assembled sequences as FASTA.
package fasta

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/exascience/pargo/pipeline"
	logging "github.com/op/go-logging"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"

	"github.com/exascience/elassemble/internal"
)

var log = logging.MustGetLogger("fasta")

// A Read is one named sequencing read. Its sequence is upper case.
type Read struct {
	Name string
	Seq  []byte
}

// HasAmbiguity reports whether the read contains any symbol other than
// A, C, G and T, such as an ambiguity code or a gap.
func (r *Read) HasAmbiguity() bool {
	for _, b := range r.Seq {
		switch b {
		case 'A', 'C', 'G', 'T':
		default:
			return true
		}
	}
	return false
}

var iupacUpperTable = map[byte]byte{
	'A': 'A', 'a': 'A',
	'C': 'C', 'c': 'C',
	'G': 'G', 'g': 'G',
	'T': 'T', 't': 'T',
	'N': 'N', 'n': 'N',
	'R': 'N', 'r': 'N',
	'Y': 'N', 'y': 'N',
	'M': 'N', 'm': 'N',
	'K': 'N', 'k': 'N',
	'W': 'N', 'w': 'N',
	'S': 'N', 's': 'N',
	'B': 'N', 'b': 'N',
	'D': 'N', 'd': 'N',
	'H': 'N', 'h': 'N',
	'V': 'N', 'v': 'N',
	'U': 'T', 'u': 'T',
}

// ToUpperAndN converts a base to upper case, and all ambiguity codes
// to N. Other symbols are returned unchanged.
func ToUpperAndN(base byte) byte {
	if n, ok := iupacUpperTable[base]; ok {
		return n
	}
	return base
}

// NewRead returns a read with a normalized copy of the given sequence.
func NewRead(name string, sequence []byte) *Read {
	s := make([]byte, len(sequence))
	for i, b := range sequence {
		s[i] = ToUpperAndN(b)
	}
	return &Read{Name: name, Seq: s}
}

// ErrEmptyInput is returned when an input file contains no records.
var ErrEmptyInput = errors.New("no sequences found")

// ParseReads reads all records of the given FASTA or FASTQ files, in
// order. Files may be compressed. The name of a read is the first word
// of its header line.
func ParseReads(filenames ...string) ([]*Read, error) {
	seq.ValidateSeq = false
	var reads []*Read
	for _, filename := range filenames {
		reader, err := fastx.NewDefaultReader(filename)
		if err != nil {
			return nil, fmt.Errorf("opening %v: %w", filename, err)
		}
		n := 0
		for {
			rec, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("reading %v: %w", filename, err)
			}
			name := ""
			if fields := strings.Fields(string(rec.Name)); len(fields) > 0 {
				name = fields[0]
			}
			reads = append(reads, NewRead(name, rec.Seq.Seq))
			n++
		}
		if n == 0 {
			return nil, fmt.Errorf("%v: %w", filename, ErrEmptyInput)
		}
		log.Infof("Read %v records from %v", n, filename)
	}
	return reads, nil
}

// DefaultLineWidth is the number of bases per line in FASTA output.
const DefaultLineWidth = 60

type record struct {
	name string
	seq  []byte
}

// FormatFasta writes named sequences in FASTA format, wrapping
// sequence lines after lineWidth bases. A lineWidth of 0 or less
// writes every sequence on one line. Batches of records are formatted
// in parallel and written in order.
func FormatFasta(w io.Writer, names []string, seqs [][]byte, lineWidth int) error {
	if len(names) != len(seqs) {
		return fmt.Errorf("%v names for %v sequences", len(names), len(seqs))
	}
	if len(seqs) == 0 {
		return nil
	}
	records := make([]record, len(seqs))
	for i, s := range seqs {
		records[i] = record{names[i], s}
	}
	var p pipeline.Pipeline
	p.Source(records)
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			buf := internal.ReserveByteBuffer()
			for _, r := range data.([]record) {
				buf = appendRecord(buf, r, lineWidth)
			}
			return buf
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			buf := data.([]byte)
			if _, err := w.Write(buf); err != nil {
				p.SetErr(err)
			}
			internal.ReleaseByteBuffer(buf)
			return nil
		})),
	)
	p.Run()
	return p.Err()
}

func appendRecord(buf []byte, r record, lineWidth int) []byte {
	buf = append(buf, '>')
	buf = append(buf, r.name...)
	buf = append(buf, '\n')
	for s := r.seq; len(s) > 0; {
		n := len(s)
		if lineWidth > 0 && n > lineWidth {
			n = lineWidth
		}
		buf = append(buf, s[:n]...)
		buf = append(buf, '\n')
		s = s[n:]
	}
	return buf
}

// WriteFasta writes named sequences to a FASTA file. The file is
// gzip compressed when its name ends in .gz, and "-" writes to
// standard output.
func WriteFasta(filename string, names []string, seqs [][]byte, lineWidth int) (err error) {
	w, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("creating %v: %w", filename, err)
	}
	defer func() {
		if nerr := w.Close(); err == nil {
			err = nerr
		}
	}()
	if err = FormatFasta(w, names, seqs, lineWidth); err != nil {
		return fmt.Errorf("writing %v: %w", filename, err)
	}
	log.Infof("Wrote %v sequences to %v", len(seqs), filename)
	return nil
}

// SequenceNames returns the names prefix_1, prefix_2, ... for n
// sequences.
func SequenceNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%v_%v", prefix, i+1)
	}
	return names
}

var complementTable = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

// ReverseComplement returns the reverse complement of a sequence.
// Symbols other than A, C, G, T and N are copied unchanged.
func ReverseComplement(sequence []byte) []byte {
	result := make([]byte, len(sequence))
	for i, b := range sequence {
		c := complementTable[b]
		if c == 0 {
			c = b
		}
		result[len(sequence)-1-i] = c
	}
	return result
}
