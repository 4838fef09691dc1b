// SPDX-License-Identifier: MPL-2.0

// Package forward exposes host resources inside a container by augmenting a
// container.Spec.
//
// Each forwarder takes a Spec and returns a new Spec with extra mounts,
// environment entries or raw engine flags. Forwarders are independent and may
// be applied in any order, but each must be applied at most once per Spec:
// applying one twice duplicates its entries. On failure a forwarder returns
// its input unchanged together with the error.
package forward
