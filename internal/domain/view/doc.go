/*
Package view implements the rendering-unit lifecycle core.

# Overview

A view is one rendering unit bound to a single account's isolated
session context. The manager creates views lazily on first switch,
keeps at most one unit per account alive, and bounds total resource
use two ways:

  - a concurrency ceiling on simultaneously active units, enforced by
    LRU eviction into the warm pool
  - a bounded pool of deactivated units kept warm for fast switch-back,
    swept periodically for stale entries

# Components

Manager is the orchestrator: switching, creation, destruction, status
monitoring and memory accounting. Pool is the bounded warm set.
BoundsCache memoizes the geometry computation for the content area.
perfTracker aggregates switch latency and pool efficiency.

Status monitors poll each account's surface through a Probe and emit a
StatusEvent on every observed transition, at most once per change.
*/
package view
