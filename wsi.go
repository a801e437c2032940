package wsi

import "time"

// InfiniteTimeout makes Acquire wait until an image is free, however long
// that takes.
const InfiniteTimeout time.Duration = -1
