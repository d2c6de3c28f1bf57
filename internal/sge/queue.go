package sge

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const reportQueueListing = "qstat -f"

// pendingBanner starts the "PENDING JOBS" section at the end of `qstat -f`.
const pendingBanner = "\n\n########"

// ComputeQueuePattern matches the queue instances that are reported on:
// cluster queues bound to compute nodes, e.g. gpu.q@compute-1-1.
var ComputeQueuePattern = regexp.MustCompile(`^[\w.-]+\.q@compute-[\w.-]+$`)

var slotsPattern = regexp.MustCompile(`^(\d+)/(\d+)/(\d+)$`)

// Columns of a job line under a queue block. The queue column is blank in
// `qstat -f`, so slots directly follow the submit time.
const (
	fJOBID = iota
	fPRIOR
	fNAME
	fUSER
	fSTATE
	fDATE
	fTIME
	fSLOTS
	fFIELDS
)

// TrimPending returns the listing without its pending-jobs section.
func TrimPending(listing string) string {
	if idx := strings.Index(listing, pendingBanner); idx != -1 {
		return listing[:idx+1]
	}
	return listing
}

// ParseQueueListing parses `qstat -f` into one QueueNode per compute queue
// instance, in listing order. Pending jobs are ignored.
func ParseQueueListing(listing string) ([]QueueNode, error) {
	var nodes []QueueNode
	var current *QueueNode
	inBlock := false
	headerNext := false

	scanner := bufio.NewScanner(strings.NewReader(TrimPending(listing)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if isRule(line) {
			if current != nil {
				nodes = append(nodes, *current)
				current = nil
			}
			inBlock = true
			headerNext = true
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if headerNext {
			headerNext = false
			fields := strings.Fields(line)
			if !ComputeQueuePattern.MatchString(fields[0]) {
				inBlock = false
				continue
			}
			node, err := parseQueueHeader(fields, lineNum, line)
			if err != nil {
				return nil, err
			}
			current = &node
			continue
		}

		if !inBlock || current == nil {
			continue
		}

		job, err := parseReservation(line, lineNum)
		if err != nil {
			return nil, err
		}
		current.Jobs = append(current.Jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, newParseError(reportQueueListing, lineNum, "", err.Error())
	}

	if current != nil {
		nodes = append(nodes, *current)
	}
	return nodes, nil
}

// parseQueueHeader reads "queue qtype resv/used/tot load arch states".
// The slot triple is located by shape so a missing qtype column is tolerated.
func parseQueueHeader(fields []string, lineNum int, line string) (QueueNode, error) {
	node := QueueNode{Queue: fields[0]}

	slotIdx := -1
	for i := 1; i < len(fields); i++ {
		if slotsPattern.MatchString(fields[i]) {
			slotIdx = i
			break
		}
	}
	if slotIdx == -1 || slotIdx+1 >= len(fields) {
		return node, newParseError(reportQueueListing, lineNum, line, "queue header without resv/used/tot and load columns")
	}

	m := slotsPattern.FindStringSubmatch(fields[slotIdx])
	node.Reserved, _ = strconv.Atoi(m[1])
	node.Used, _ = strconv.Atoi(m[2])
	node.Total, _ = strconv.Atoi(m[3])

	if load, err := strconv.ParseFloat(fields[slotIdx+1], 64); err == nil {
		node.Load = load
		node.HasLoad = true
	}

	// After load come arch and, when any are set, the states.
	if rest := fields[slotIdx+2:]; len(rest) >= 2 {
		node.States = rest[len(rest)-1]
	}

	return node, nil
}

func parseReservation(line string, lineNum int) (JobReservation, error) {
	fields := strings.Fields(line)
	// A trailing ja-task-ID column is allowed.
	if len(fields) != fFIELDS && len(fields) != fFIELDS+1 {
		return JobReservation{}, newParseError(reportQueueListing, lineNum, line, "job line does not have 8 or 9 columns")
	}

	slots, err := strconv.Atoi(fields[fSLOTS])
	if err != nil {
		return JobReservation{}, newParseError(reportQueueListing, lineNum, line, "slots is not a number")
	}

	submitted, err := parseTimestamp(fields[fDATE], fields[fTIME])
	if err != nil {
		return JobReservation{}, newParseError(reportQueueListing, lineNum, line, "bad submit time")
	}

	return JobReservation{
		JobID:     fields[fJOBID],
		User:      fields[fUSER],
		Slots:     slots,
		Submitted: submitted,
	}, nil
}

func parseTimestamp(date, clock string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, date+" "+clock, SchedulerZone)
}

// isRule reports whether line is one of the dashed separators qstat prints.
func isRule(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= 10 && strings.Trim(line, "-") == ""
}
