package headless

// extractRowsJS walks the rendered DOM trying the selector variants
// the celebrity database has used, returning {name, sociotype, url,
// confidence} objects. Confidence is normalized to [0,1] in-page so
// the Go side only has to range-check it.
const extractRowsJS = `(() => {
	const results = [];
	const rowSelectors = [
		'table tr',
		'.person-row',
		'.celebrity-item',
		'[data-person]'
	];
	for (const selector of rowSelectors) {
		const elements = document.querySelectorAll(selector);
		if (elements.length === 0) continue;
		elements.forEach(elem => {
			const nameElem = elem.querySelector(
				'.name, .person-name, a[href*="person"], [data-name]');
			const typeElem = elem.querySelector(
				'.type, .sociotype, .mbti, [data-type]');
			const confElem = elem.querySelector(
				'.confidence, .votes, .score, [data-confidence]');
			if (!nameElem || !typeElem) return;
			const row = {
				name: nameElem.textContent.trim(),
				sociotype: typeElem.textContent.trim(),
				url: nameElem.href || '',
				confidence: null
			};
			if (confElem) {
				const match = confElem.textContent.trim().match(/(\d+\.?\d*)/);
				if (match) {
					let val = parseFloat(match[1]);
					if (val > 1) val = val / 100;
					row.confidence = val;
				}
			}
			results.push(row);
		});
		if (results.length > 0) break;
	}
	return results;
})()`

// findSearchBoxJS returns the first selector that matches a visible
// search input, or the empty string when the page has none.
const findSearchBoxJS = `(() => {
	const candidates = [
		'input[type="search"]',
		'input[name="search"]',
		'input[placeholder*="search"]',
		'#search',
		'.search-input'
	];
	for (const selector of candidates) {
		if (document.querySelector(selector)) return selector;
	}
	return '';
})()`
