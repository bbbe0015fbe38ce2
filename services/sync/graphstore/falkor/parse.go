// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package falkor

import (
	"fmt"
	"strconv"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
	"github.com/AleutianAI/NoteGraph/services/sync/graphstore"
)

// parseReply decodes a GRAPH.QUERY response into rows.
//
// The server replies with a three-element array (header, rows,
// statistics) for queries that return data and a one-element array
// (statistics only) for pure writes.
func parseReply(reply interface{}) ([]graphstore.Row, error) {
	top, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T", reply)
	}
	if len(top) < 3 {
		// Write-only reply: statistics, no result set.
		return nil, nil
	}

	header, err := parseHeader(top[0])
	if err != nil {
		return nil, err
	}

	rawRows, ok := top[1].([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected rows type %T", top[1])
	}

	rows := make([]graphstore.Row, 0, len(rawRows))
	for _, rr := range rawRows {
		cells, ok := rr.([]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", rr)
		}
		row := make(graphstore.Row, len(header))
		for i, cell := range cells {
			if i >= len(header) {
				break
			}
			row[header[i]] = parseScalar(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseHeader extracts column names. Verbose replies carry plain
// strings; compact replies carry [type, name] pairs.
func parseHeader(raw interface{}) ([]string, error) {
	cols, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected header type %T", raw)
	}

	names := make([]string, 0, len(cols))
	for _, c := range cols {
		switch v := c.(type) {
		case string:
			names = append(names, v)
		case []interface{}:
			if len(v) == 0 {
				return nil, fmt.Errorf("empty header column")
			}
			s, ok := v[len(v)-1].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected header column %v", v)
			}
			names = append(names, s)
		default:
			return nil, fmt.Errorf("unexpected header column type %T", c)
		}
	}
	return names, nil
}

// parseScalar maps one reply cell onto the property value type. The
// queries this adapter issues only return scalars and string lists,
// never whole nodes or edges.
func parseScalar(cell interface{}) datatypes.Value {
	switch v := cell.(type) {
	case nil:
		return datatypes.Null()
	case int64:
		return datatypes.Number(float64(v))
	case float64:
		return datatypes.Number(v)
	case string:
		return datatypes.String(v)
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return datatypes.Null()
			}
			list = append(list, s)
		}
		return datatypes.StringList(list)
	default:
		return datatypes.Null()
	}
}

// numberOf reads a numeric cell, tolerating the string form doubles
// take on RESP2 connections.
func numberOf(v datatypes.Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, true
	}
	if s, ok := v.AsString(); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
