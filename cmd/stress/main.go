// Command stress drives a HashTable with a concurrent workload read from
// a plain-text file, one operation per line, and optionally checks the
// table's invariants once every worker has finished. Ported from the
// teacher's cmd/dinodb_stress, replacing its REPL-channel fan-out with an
// errgroup.Group of workers sharing one HashTable directly, since there's
// no REPL layer in this index substrate to drive through.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"extendb/pkg/buffer"
	"extendb/pkg/disk"
	"extendb/pkg/hash"
	"extendb/pkg/kv"
	"extendb/pkg/replacer"
)

var maxDelayMillis int64 = 10

func jitter() time.Duration {
	return time.Duration(rand.Int63n(maxDelayMillis)+1) * time.Millisecond
}

// parseWorkload reads path, one "insert <key> <val>" / "get <key>" /
// "remove <key> <val>" operation per line.
func parseWorkload(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var workload []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			workload = append(workload, line)
		}
	}
	return workload, scanner.Err()
}

// runOp applies one workload line to table, ignoring application-level
// outcomes (duplicate inserts, missing removes) but surfacing genuine
// errors.
func runOp(table *hash.HashTable[int64, int64], line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "insert":
		key, val, err := parseKeyVal(fields)
		if err != nil {
			return err
		}
		_, err = table.Insert(key, val)
		return err
	case "remove":
		key, val, err := parseKeyVal(fields)
		if err != nil {
			return err
		}
		_, err = table.Remove(key, val)
		return err
	case "get":
		if len(fields) != 2 {
			return fmt.Errorf("get: want 1 argument, got %d", len(fields)-1)
		}
		key, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		_, _, err = table.GetValue(key)
		return err
	default:
		return fmt.Errorf("unrecognized op %q", fields[0])
	}
}

func parseKeyVal(fields []string) (int64, int64, error) {
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("%s: want 2 arguments, got %d", fields[0], len(fields)-1)
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	val, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return key, val, nil
}

func main() {
	var dbFlag = flag.String("db", "stress.db", "backing file for the buffer pool")
	var workloadFlag = flag.String("workload", "", "workload file (required)")
	var nFlag = flag.Int("n", 1, "number of concurrent workers")
	var poolSizeFlag = flag.Int("poolsize", 64, "number of frames in the buffer pool")
	var verifyFlag = flag.Bool("verify", false, "verify the table's invariants once the workload completes")
	flag.Parse()

	if *workloadFlag == "" {
		fmt.Println("no workload file given")
		os.Exit(1)
	}
	workload, err := parseWorkload(*workloadFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	os.Remove(*dbFlag)
	device, err := disk.NewFileBlockDevice(*dbFlag, 1, 0)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	pool := buffer.New(device, *poolSizeFlag, replacer.NewLRUReplacer(*poolSizeFlag))
	fmt.Printf("buffer pool %s opened over %s\n", pool.GetInstanceID(), *dbFlag)

	table, err := hash.New(pool, kv.Int64Traits)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var group errgroup.Group
	for worker := 0; worker < *nFlag; worker++ {
		worker := worker
		group.Go(func() error {
			for i := worker; i < len(workload); i += *nFlag {
				time.Sleep(jitter())
				if err := runOp(table, workload[i]); err != nil {
					return fmt.Errorf("line %q: %w", workload[i], err)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *verifyFlag {
		if err := table.VerifyIntegrity(); err != nil {
			fmt.Println("verify failed:", err)
			os.Exit(1)
		}
		fmt.Println("verify ok")
	}

	if err := pool.Close(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
