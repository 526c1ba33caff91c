package main

// #include "plink.h"
import "C"
import (
	"context"
	"encoding/json"

	"github.com/jmylchreest/plink/internal/bridge"
	"github.com/jmylchreest/plink/internal/version"
	"github.com/jmylchreest/plink/pkg/rules"
)

//export plink_rules_info
func plink_rules_info(rulesPath *C.char) C.PlinkResult {
	path := ""
	if rulesPath != nil {
		path = C.GoString(rulesPath)
	}
	info, err := bridge.DescribeRules(path)
	if err != nil {
		return makeError(err.Error())
	}
	data, err := json.Marshal(info)
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(string(data))
}

//export plink_rules_update
func plink_rules_update(destPath *C.char, sourceURL *C.char, hashURL *C.char) C.PlinkResult {
	opts := rules.UpdateOptions{UserAgent: version.UserAgent()}
	if sourceURL == nil {
		opts.SourceURL = rules.DefaultSourceURL
		opts.HashURL = rules.DefaultHashURL
	} else {
		opts.SourceURL = C.GoString(sourceURL)
		if hashURL != nil {
			opts.HashURL = C.GoString(hashURL)
		}
	}

	res, err := rules.Update(context.Background(), C.GoString(destPath), opts)
	if err != nil {
		return makeError(err.Error())
	}
	data, err := json.Marshal(res)
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(string(data))
}
