/*
damagetrack tracks physical road damage instances across a continuous
stream of per-frame object detections captured from a moving vehicle and
guarantees each defect is reported exactly once, even when the same
defect is detected in dozens of consecutive frames or re-encountered
later on the same trip.

The Engine consumes one frame at a time: the frame's detections plus the
vehicle position go in, confirmed new damage events come out.  Temporal
duplicates are merged by Kalman filter motion tracking with minimum cost
assignment, spatial duplicates are suppressed by a great-circle distance
ledger over the damage locations already recorded.

See example code and usage in the example subdirectory.
*/
package damagetrack
