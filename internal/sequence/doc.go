// Package sequence infers numbering schemes from arbitrarily named files and
// decides whether a folder is safe to hand to the encoder.
//
// Scan reads one directory (non-recursive) and extracts the first contiguous
// digit run of each file stem as its index. Validate applies every consistency
// rule to the scanned folder and aggregates all defects into one Result, so a
// caller sees the complete picture in a single pass.
package sequence
