/*
Package session implements the session controller.

The Controller owns the SessionState for the lifetime of one session. It walks the
generated trial sequence in order, separates trials with the inter-trial interval,
folds every completed record into the state and the trial journal, and always ends
by blanking the display, releasing the hardware and writing the output data file,
whether the session completed, was aborted or hit a device fault.
*/
package session
