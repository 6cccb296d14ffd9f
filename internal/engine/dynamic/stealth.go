package dynamic

import "fmt"

// basicStealthJS hides the most obvious automation tells
const basicStealthJS = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}};
`

// humanStealthJS is layered on top of go-rod/stealth for the human
// simulation strategy
const humanStealthJS = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {
  get: () => {
    const plugins = [
      {name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer'},
      {name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai'},
      {name: 'Native Client', filename: 'internal-nacl-plugin'},
    ];
    plugins.length = 3;
    return plugins;
  }
});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}, loadTimes: function() {}, csi: function() {}, app: {}};
if (navigator.permissions && navigator.permissions.query) {
  const originalQuery = navigator.permissions.query.bind(navigator.permissions);
  navigator.permissions.query = (parameters) => (
    parameters.name === 'notifications' ?
      Promise.resolve({state: Notification.permission}) :
      originalQuery(parameters)
  );
}
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Array;
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Promise;
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Symbol;
if (window.WebGLRenderingContext) {
  const getParameter = WebGLRenderingContext.prototype.getParameter;
  WebGLRenderingContext.prototype.getParameter = function(parameter) {
    if (parameter === 37445) return 'Intel Inc.';
    if (parameter === 37446) return 'Intel Iris OpenGL Engine';
    return getParameter.apply(this, arguments);
  };
}
if (window.HTMLCanvasElement) {
  const toDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function() {
    const ctx = this.getContext('2d');
    if (ctx && this.width > 0 && this.height > 0) {
      const px = ctx.getImageData(0, 0, 1, 1);
      px.data[0] = px.data[0] ^ 1;
      ctx.putImageData(px, 0, 0);
    }
    return toDataURL.apply(this, arguments);
  };
}
`

// challengeStealthJS is used while waiting out interstitials
const challengeStealthJS = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}, loadTimes: () => {}, csi: () => {}};
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Array;
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Promise;
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Symbol;
delete window.__nightmare;
delete window._phantom;
delete window.callPhantom;
`

// smoothScrollJS scrolls in steps of stepMin..stepMax px every
// tickMin..tickMax ms until min(scrollHeight/2, 2000) is covered.
// Evaluated as a function returning a promise.
func smoothScrollJS(stepMin, stepMax, tickMin, tickMax int) string {
	return fmt.Sprintf(`() => new Promise(resolve => {
  let total = 0;
  const distance = Math.floor(Math.random() * %d) + %d;
  const limit = Math.min(document.body ? document.body.scrollHeight / 2 : 0, 2000);
  if (limit <= 0) { resolve(0); return; }
  const timer = setInterval(() => {
    window.scrollBy(0, distance);
    total += distance;
    if (total >= limit) {
      clearInterval(timer);
      resolve(total);
    }
  }, Math.floor(Math.random() * %d) + %d);
})`, stepMax-stepMin+1, stepMin, tickMax-tickMin+1, tickMin)
}
