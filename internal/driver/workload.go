package driver

import (
	"strconv"
)

// Behavior is the operation a single driver invocation performs
type Behavior string

const (
	BehaviorPut   Behavior = "put"
	BehaviorGet   Behavior = "get"
	BehaviorExist Behavior = "exist"
)

// Workload is an immutable description of one driver invocation
type Workload struct {
	Behavior Behavior
	Count    uint64
	Payload  int
	Host     string
	First    uint64
	// StartFlag selects the -s form of the index flag instead of -f.
	// The failover run always addresses keys with -f; the standalone
	// smoke run uses -s.
	StartFlag bool
	Threads   int
	Mode      string
	KeySize   int
	Port      int
	User      string
	Password  string
}

// Args builds the driver's command line. The flag set and ordering match
// the generator's CLI contract exactly:
//
//	-b {put|get|exist} -c <count> -l <payload> -h <host> {-f|-s} <index>
//	-t <threads> --mode {random|normal} -k {8|16} -p <port>
//	[--user <u> --password <pw>]
func (w Workload) Args() []string {
	indexFlag := "-f"
	if w.StartFlag {
		indexFlag = "-s"
	}

	args := []string{
		"-b", string(w.Behavior),
		"-c", strconv.FormatUint(w.Count, 10),
		"-l", strconv.Itoa(w.Payload),
		"-h", w.Host,
		indexFlag, strconv.FormatUint(w.First, 10),
		"-t", strconv.Itoa(w.Threads),
		"--mode", w.Mode,
		"-k", strconv.Itoa(w.KeySize),
		"-p", strconv.Itoa(w.Port),
	}

	if w.User != "" {
		args = append(args, "--user", w.User, "--password", w.Password)
	}

	return args
}
