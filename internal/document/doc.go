// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package document defines the persisted form of a script and the logic for
// reading and writing it as HCL.
//
// A document is deliberately dumb: node kinds, pin names and type names are
// plain strings, and nothing here knows whether they resolve. Turning a
// document into a live graph (and reporting unknown kinds or pins) is the
// job of the script package. What this package does guarantee is structural
// validity: every block has the attributes it needs, names are unique, and
// every problem is reported as an hcl.Diagnostic pointing at its source
// range.
//
// Example:
//
//	variable "count" {
//	  type  = "int32"
//	  value = 0
//	}
//
//	node "Branch1" {
//	  type     = "Branch"
//	  position = [120, 40]
//
//	  default "condition" {
//	    type  = "bool"
//	    value = true
//	  }
//
//	  connection {
//	    in {
//	      node = "Branch1"
//	      pin  = "exec"
//	    }
//	    out {
//	      node = "Event1"
//	      pin  = "fired"
//	    }
//	  }
//	}
package document
