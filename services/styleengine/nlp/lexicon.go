// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlp

// Closed-class lexicons for the heuristic tagger. Keys are lowercase.

var determiners = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"these": true, "those": true, "each": true, "every": true, "either": true,
	"neither": true, "some": true, "any": true, "no": true, "all": true,
	"both": true, "such": true,
}

var prepositions = map[string]bool{
	"in": true, "on": true, "at": true, "by": true, "for": true, "with": true,
	"about": true, "against": true, "between": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "to": true, "from": true, "up": true,
	"down": true, "of": true, "off": true, "over": true, "under": true,
	"within": true, "without": true, "via": true, "per": true, "across": true,
	"near": true, "until": true, "upon": true, "onto": true, "toward": true,
	"towards": true, "among": true,
}

var pronouns = map[string]bool{
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true,
	"they": true, "me": true, "him": true, "her": true, "us": true,
	"them": true, "myself": true, "yourself": true, "himself": true,
	"herself": true, "itself": true, "ourselves": true, "themselves": true,
	"mine": true, "yours": true, "hers": true, "ours": true, "theirs": true,
	"my": true, "your": true, "his": true, "its": true, "our": true,
	"their": true, "who": true, "whom": true, "whose": true, "which": true,
	"what": true, "something": true, "anything": true, "nothing": true,
	"everything": true, "someone": true, "anyone": true, "everyone": true,
}

var coordConjunctions = map[string]bool{
	"and": true, "or": true, "but": true, "nor": true, "yet": true, "so": true,
}

var subordConjunctions = map[string]bool{
	"although": true, "because": true, "since": true, "unless": true,
	"while": true, "whereas": true, "if": true, "though": true, "when": true,
	"whenever": true, "where": true, "wherever": true, "once": true,
	"until": true, "as": true, "than": true, "whether": true,
}

var modals = map[string]bool{
	"can": true, "could": true, "may": true, "might": true, "must": true,
	"shall": true, "should": true, "will": true, "would": true,
}

// beForms and the other auxiliary tables drive passive-voice detection.
var beForms = map[string]bool{
	"am": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
}

var haveForms = map[string]bool{
	"have": true, "has": true, "had": true, "having": true,
}

var doForms = map[string]bool{
	"do": true, "does": true, "did": true, "doing": true, "done": true,
}

var getForms = map[string]bool{
	"get": true, "gets": true, "got": true, "gotten": true, "getting": true,
}

// irregularLemmas maps inflected forms the suffix stripper cannot handle.
var irregularLemmas = map[string]string{
	"am": "be", "is": "be", "are": "be", "was": "be", "were": "be",
	"been": "be", "being": "be",
	"has": "have", "had": "have", "having": "have",
	"does": "do", "did": "do", "done": "do", "doing": "do",
	"goes": "go", "went": "go", "gone": "go",
	"made": "make", "said": "say", "got": "get", "gotten": "get",
	"ran": "run", "came": "come", "taken": "take", "took": "take",
	"given": "give", "gave": "give", "written": "write", "wrote": "write",
	"seen": "see", "saw": "see", "found": "find", "kept": "keep",
	"held": "hold", "sent": "send", "built": "build", "left": "leave",
	"meant": "mean", "set": "set", "put": "put", "read": "read",
	"chose": "choose", "chosen": "choose",
	"broke": "break", "broken": "break", "began": "begin", "begun": "begin",
	"known": "know", "knew": "know", "shown": "show", "thought": "think",
	"brought": "bring", "bought": "buy", "caught": "catch", "taught": "teach",
	"better": "good", "best": "good", "worse": "bad", "worst": "bad",
	"more": "much", "most": "much", "less": "little", "least": "little",
	"children": "child", "people": "person", "men": "man", "women": "woman",
	"feet": "foot", "mice": "mouse", "data": "datum", "indices": "index",
	"criteria": "criterion",
}

// Irregular past participles that commonly appear in technical passive
// constructions but do not end in -ed.
var irregularParticiples = map[string]bool{
	"done": true, "made": true, "given": true, "taken": true, "seen": true,
	"known": true, "shown": true, "written": true, "built": true,
	"sent": true, "kept": true, "held": true, "found": true, "chosen": true,
	"broken": true, "begun": true, "run": true, "set": true, "put": true,
	"read": true, "left": true, "meant": true, "gone": true, "thrown": true,
	"drawn": true, "driven": true, "hidden": true, "frozen": true,
	"bound": true, "brought": true, "bought": true, "caught": true,
	"taught": true, "understood": true, "withdrawn": true,
}

// abbreviations never terminate a sentence even when followed by a period.
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "etc": true, "vs": true, "cf": true,
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"inc": true, "ltd": true, "corp": true, "co": true, "dept": true,
	"fig": true, "figs": true, "no": true, "nos": true, "vol": true,
	"st": true, "ave": true, "approx": true, "min": true, "max": true,
	"sec": true, "ver": true, "rev": true, "p": true, "pp": true,
	"u.s": true, "u.k": true,
}

var numberWords = map[string]bool{
	"zero": true, "one": true, "two": true, "three": true, "four": true,
	"five": true, "six": true, "seven": true, "eight": true, "nine": true,
	"ten": true, "eleven": true, "twelve": true, "twenty": true,
	"thirty": true, "forty": true, "fifty": true, "hundred": true,
	"thousand": true, "million": true, "billion": true,
}

// Gazetteers for the heuristic recognizer. Phrases are lowercase; matching
// is case-insensitive so casing problems in the source text still surface
// as entities for the style rules to inspect.

var productGazetteer = map[string]bool{
	"watson": true, "ibm watson": true, "kubernetes": true, "docker": true,
	"openshift": true, "terraform": true, "ansible": true, "postgresql": true,
	"redis": true, "kafka": true, "elasticsearch": true, "grafana": true,
	"prometheus": true, "jenkins": true, "gitlab": true, "github": true,
	"visual studio code": true, "intellij idea": true, "cloud pak": true,
	"db2": true, "websphere": true, "linux": true, "windows": true,
	"macos": true,
}

var orgGazetteer = map[string]bool{
	"ibm": true, "microsoft": true, "google": true, "amazon": true,
	"red hat": true, "oracle": true, "apple": true, "intel": true,
	"nvidia": true, "mozilla": true, "canonical": true, "vmware": true,
	"cisco": true, "salesforce": true, "sap": true,
	"apache software foundation": true, "linux foundation": true,
	"cloud native computing foundation": true,
}

var placeGazetteer = map[string]bool{
	"california": true, "northern california": true,
	"southern california": true, "new york": true, "new york city": true,
	"san francisco": true, "seattle": true, "austin": true, "boston": true,
	"london": true, "berlin": true, "paris": true, "tokyo": true,
	"bangalore": true, "dublin": true, "toronto": true, "sydney": true,
	"singapore": true, "amsterdam": true, "zurich": true,
	"united states": true, "united kingdom": true, "germany": true,
	"france": true, "japan": true, "india": true, "canada": true,
	"australia": true, "ireland": true, "texas": true, "washington": true,
	"oregon": true, "silicon valley": true, "bay area": true,
	"pacific northwest": true, "east coast": true, "west coast": true,
}

// gazetteerLabel returns the entity label for a lowercase phrase, or "".
// Product names win over organizations so "ibm watson" labels as PRODUCT.
func gazetteerLabel(phrase string) string {
	switch {
	case productGazetteer[phrase]:
		return "PRODUCT"
	case orgGazetteer[phrase]:
		return "ORG"
	case placeGazetteer[phrase]:
		return "GPE"
	}
	return ""
}

// maxGazetteerWords bounds the phrase window scanned by the recognizer.
const maxGazetteerWords = 4
