// SPDX-License-Identifier: MPL-2.0

// Package testutil scripts container engine invocations for tests. A
// CommandScript records each command and answers it by re-executing the test
// binary through TestHelperProcess.
package testutil
