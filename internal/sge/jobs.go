package sge

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

const reportJobTable = "qstat"

// Columns of a plain qstat row. Pending jobs have no queue column, which
// shifts slots (and ja-task-ID) one to the left.
const (
	jJOBID = iota
	jPRIOR
	jNAME
	jUSER
	jSTATE
	jDATE
	jTIME
	jQUEUE
	jSLOTS
	jTASKS
)

// ParseJobTable parses plain `qstat` output. The two header lines may be
// present or already stripped (`qstat | tail -n +3`).
func ParseJobTable(output string) ([]JobRow, error) {
	var rows []JobRow
	scanner := bufio.NewScanner(strings.NewReader(output))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		fields := strings.Fields(line)

		if len(fields) == 0 || isRule(line) || fields[0] == "job-ID" {
			continue
		}

		row, err := parseJobRow(fields)
		if err != nil {
			return nil, newParseError(reportJobTable, lineNum, line, err.Error())
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, newParseError(reportJobTable, lineNum, "", err.Error())
	}

	return rows, nil
}

func parseJobRow(fields []string) (JobRow, error) {
	if len(fields) < jQUEUE+1 || len(fields) > jTASKS+1 {
		return JobRow{}, fmt.Errorf("expected 8 to 10 columns")
	}

	// Running jobs carry queue@host in the queue column; pending ones don't.
	rest := fields[jQUEUE:]
	queue := ""
	if strings.Contains(rest[0], "@") {
		queue = rest[0]
		rest = rest[1:]
	}
	if len(rest) == 0 || len(rest) > 2 {
		return JobRow{}, fmt.Errorf("expected slots and optional ja-task-ID after the queue")
	}

	slots, err := strconv.Atoi(rest[0])
	if err != nil {
		return JobRow{}, fmt.Errorf("slots is not a number")
	}

	prio, err := strconv.ParseFloat(fields[jPRIOR], 64)
	if err != nil {
		return JobRow{}, fmt.Errorf("priority is not a number")
	}

	submitted, err := parseTimestamp(fields[jDATE], fields[jTIME])
	if err != nil {
		return JobRow{}, fmt.Errorf("bad submit/start time")
	}

	row := JobRow{
		JobID:     fields[jJOBID],
		Priority:  prio,
		Name:      fields[jNAME],
		User:      fields[jUSER],
		State:     fields[jSTATE],
		Submitted: submitted,
		Queue:     queue,
		Slots:     slots,
	}
	if len(rest) == 2 {
		row.Tasks = rest[1]
	}
	return row, nil
}

// FilterErrorJobs picks the jobs in an error state (the state column
// contains 'E', e.g. Eqw) out of a `qstat -f` or `qstat` listing. Lines of
// the same job, such as array tasks, are grouped under one ErrorJob in
// first-seen order.
func FilterErrorJobs(listing string) []ErrorJob {
	var jobs []ErrorJob
	index := make(map[string]int)

	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimRight(line, "\r")
		fields := strings.Fields(line)
		if len(fields) <= jSTATE || !strings.Contains(fields[jSTATE], "E") {
			continue
		}
		if _, err := strconv.Atoi(fields[jJOBID]); err != nil {
			continue
		}

		id := fields[jJOBID]
		if i, ok := index[id]; ok {
			jobs[i].Lines = append(jobs[i].Lines, line)
			continue
		}
		index[id] = len(jobs)
		jobs = append(jobs, ErrorJob{JobID: id, User: fields[jUSER], Lines: []string{line}})
	}

	return jobs
}
